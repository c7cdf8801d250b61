package estimate

import (
	"errors"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
)

var (
	ErrNotFound     = errors.New("estimate not found")
	ErrLineNotFound = errors.New("estimate line not found")
)

func notFound(op string, err error) error {
	return apperr.Wrap(apperr.KindNotFound, err.Error(), err).WithOp(op)
}
