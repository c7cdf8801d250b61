package view

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
)

const dbTimeout = 5 * time.Second

// FormatMoney renders an amount with two decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatDate formats a time into YYYY-MM-DD. Nil renders as a dash.
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}

	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

// Describe renders an error for the desk, including per-field problems and blocking jobs.
func Describe(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return err.Error()
	}

	var b strings.Builder

	b.WriteString(appErr.Error())

	switch d := appErr.Details.(type) {
	case apperr.FieldErrors:
		keys := make([]string, 0, len(d))
		for k := range d {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "\n  %s: %s", k, d[k])
		}
	case apperr.BlockingJob:
		fmt.Fprintf(&b, "\n  blocking job %s is %s", d.Number, d.Status)
	}

	return b.String()
}
