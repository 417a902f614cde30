package validation

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"
)

type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func FormatValidationError(err error) []Error {
	var out []Error
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		for _, e := range verrs {
			out = append(out, Error{
				Field:   e.Field(),
				Message: e.Error(),
			})
		}
	}
	return out
}
