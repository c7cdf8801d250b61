package view

import (
	"fmt"
	"strings"
	"time"
)

// PromiseChoice is a quick pick for the date a job is promised to the customer.
type PromiseChoice int

const (
	PromiseTomorrow PromiseChoice = iota
	PromiseTwoDays
	PromiseNextWeek
	PromiseCustom
	PromiseDefault
)

func (p PromiseChoice) String() string {
	switch p {
	case PromiseTomorrow:
		return "Tomorrow"
	case PromiseTwoDays:
		return "In 2 days"
	case PromiseNextWeek:
		return "Next Monday"
	case PromiseCustom:
		return "Custom date"
	case PromiseDefault:
		return "Workshop default"
	}

	return "Unknown"
}

// PromiseDate resolves a quick pick to 17:00 local time on the chosen day.
// PromiseDefault returns nil so the server default applies.
func PromiseDate(choice PromiseChoice, custom string, now time.Time) (*time.Time, error) {
	var day time.Time

	switch choice {
	case PromiseTomorrow:
		day = now.AddDate(0, 0, 1)
	case PromiseTwoDays:
		day = now.AddDate(0, 0, 2)
	case PromiseNextWeek:
		offset := (8 - int(now.Weekday())) % 7
		if offset == 0 {
			offset = 7
		}

		day = now.AddDate(0, 0, offset)
	case PromiseCustom:
		d, err := ParseDate(custom, now.Location())
		if err != nil {
			return nil, err
		}

		day = d
	default:
		return nil, nil
	}

	t := time.Date(day.Year(), day.Month(), day.Day(), 17, 0, 0, 0, now.Location())

	return &t, nil
}

// ParseDate reads a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}

	return t, nil
}
