package validation

import (
	stderrors "errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/imtaco/bedrud-client/internal/errors"
)

var (
	defaultOnce sync.Once
	defaultV    *validator.Validate
)

// Default returns the shared validator with every custom tag registered.
func Default() *validator.Validate {
	defaultOnce.Do(func() {
		defaultV = validator.New(validator.WithRequiredStructEnabled())
		MustRegisterTags(defaultV)
	})
	return defaultV
}

// Struct validates s with the shared validator. Failures carry
// errors.ErrValidation and list the offending fields.
func Struct(s any) error {
	err := Default().Struct(s)
	if err == nil {
		return nil
	}
	fields := FormatValidationError(err)
	if len(fields) == 0 {
		return errors.Wrap(errors.ErrValidation, err, "invalid input")
	}
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Message
	}
	return errors.New(errors.ErrValidation, strings.Join(msgs, "; "))
}

func Register(v *validator.Validate, tag string, fn validator.Func) error {
	return v.RegisterValidation(tag, fn)
}

func RegisterAlias(v *validator.Validate, tag string, alias string) {
	v.RegisterAlias(tag, alias)
}

// RegisterGin installs the custom tags on gin's binding validator.
func RegisterGin() error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		return RegisterTags(v)
	}
	return stderrors.New("validator engine is not of type *validator.Validate")
}

func MustRegisterGin() {
	if err := RegisterGin(); err != nil {
		panic(err)
	}
}
