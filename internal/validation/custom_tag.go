package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// lowercase words joined by single hyphens
var roomNameRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const (
	roomNameMinLen = 3
	roomNameMaxLen = 63
)

func RegisterTags(v *validator.Validate) error {
	if err := Register(v, "roomname", ValidateRoomName); err != nil {
		return err
	}
	RegisterAlias(v, "serverurl", "required,http_url")
	RegisterAlias(v, "displayname", "max=64")
	RegisterAlias(v, "guestname", "required,min=1,max=64")
	return nil
}

func MustRegisterTags(v *validator.Validate) {
	if err := RegisterTags(v); err != nil {
		panic(err)
	}
}

// ValidateRoomName accepts 3..63 characters of lowercase alphanumerics
// separated by single hyphens.
func ValidateRoomName(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < roomNameMinLen || len(s) > roomNameMaxLen {
		return false
	}
	return roomNameRegex.MatchString(s)
}
