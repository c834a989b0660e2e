package proto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks inbound payloads against their struct tags.
type Validator struct {
	v          *validator.Validate
	maxBodyLen int
}

// NewValidator returns a Validator. maxBodyLen <= 0 disables the message length check.
func NewValidator(maxBodyLen int) *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled()), maxBodyLen: maxBodyLen}
}

// Struct validates a decoded payload and returns a readable message on failure.
func (v *Validator) Struct(payload any) error {
	err := v.v.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", strings.ToLower(fe.Field())))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", strings.ToLower(fe.Field()), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s is invalid", strings.ToLower(fe.Field())))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

// Body checks the message text length. Emptiness is left to the hub.
func (v *Validator) Body(body string) error {
	if v.maxBodyLen > 0 && len([]rune(body)) > v.maxBodyLen {
		return fmt.Errorf("message must be at most %d characters", v.maxBodyLen)
	}
	return nil
}
