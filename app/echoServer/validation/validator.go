// Package validation adapts validator/v10 to echo's Validator hook.
package validation

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Validator struct {
	v *validator.Validate
}

var _ echo.Validator = (*Validator)(nil)

func New() *Validator {
	return &Validator{v: validator.New()}
}

// Validate reports struct-tag violations as a 400 so controllers that
// rely on c.Validate get the same responses as the ones that call the
// validator directly.
func (v *Validator) Validate(i interface{}) error {
	if err := v.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
