package authform

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerInput struct {
	FirstName  string `json:"firstName" validate:"required"`
	LastName   string `json:"lastName" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	Location   string `json:"location" validate:"required"`
	Occupation string `json:"occupation" validate:"required"`
}

var labels = map[Field]string{
	FieldFirstName:  "First Name",
	FieldLastName:   "Last Name",
	FieldEmail:      "Email",
	FieldPassword:   "Password",
	FieldLocation:   "Location",
	FieldOccupation: "Occupation",
	FieldPicture:    "Picture",
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// trimmed is the value of field as validated and submitted.
func (f *Form) trimmed(field Field) string {
	return strings.TrimSpace(f.values[field])
}

// check validates the values of the active mode and returns the failing
// fields with their messages.
func (f *Form) check() map[Field]string {
	var input any
	if f.mode == ModeRegister {
		input = registerInput{
			FirstName:  f.trimmed(FieldFirstName),
			LastName:   f.trimmed(FieldLastName),
			Email:      f.trimmed(FieldEmail),
			Password:   f.values[FieldPassword],
			Location:   f.trimmed(FieldLocation),
			Occupation: f.trimmed(FieldOccupation),
		}
	} else {
		input = loginInput{
			Email:    f.trimmed(FieldEmail),
			Password: f.values[FieldPassword],
		}
	}

	errs := map[Field]string{}
	if err := f.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			errs[FieldEmail] = err.Error()
			return errs
		}
		for _, fe := range verrs {
			field := Field(fe.Field())
			if _, seen := errs[field]; !seen {
				errs[field] = message(field, fe.Tag())
			}
		}
	}

	if f.mode == ModeRegister && f.requirePicture && f.picture == nil {
		errs[FieldPicture] = message(FieldPicture, "required")
	}
	return errs
}

func message(field Field, tag string) string {
	switch tag {
	case "email":
		return "Invalid email format"
	default:
		return labels[field] + " is required"
	}
}
