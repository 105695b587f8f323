package service

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"acquisitions-api/internal/domain"
)

// bcrypt ignores input beyond this many bytes.
const maxPasswordBytes = 72

var (
	nameRules     = []validation.Rule{validation.RuneLength(4, 50)}
	emailRules    = []validation.Rule{validation.RuneLength(0, 50), is.Email}
	passwordRules = []validation.Rule{validation.RuneLength(6, 50), validation.By(fitsBcrypt)}
	roleRules     = []validation.Rule{validation.In(domain.RoleUser, domain.RoleAdmin)}
)

// SignUpInput is the registration payload.
type SignUpInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

func (in SignUpInput) normalized() SignUpInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	if strings.TrimSpace(string(in.Role)) == "" {
		in.Role = domain.RoleUser
	}
	return in
}

// Validate checks the payload shape.
func (in SignUpInput) Validate() error {
	return asValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Name, append([]validation.Rule{validation.Required}, nameRules...)...),
		validation.Field(&in.Email, append([]validation.Rule{validation.Required}, emailRules...)...),
		validation.Field(&in.Password, append([]validation.Rule{validation.Required}, passwordRules...)...),
		validation.Field(&in.Role, roleRules...),
	))
}

// SignInInput is the login payload.
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignInInput) normalized() SignInInput {
	in.Email = domain.NormalizeEmail(in.Email)
	return in
}

func (in SignInInput) Validate() error {
	return asValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, append([]validation.Rule{validation.Required}, passwordRules...)...),
	))
}

// UpdateUserInput is a partial user update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
}

func (in UpdateUserInput) normalized() UpdateUserInput {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		in.Email = &email
	}
	return in
}

func (in UpdateUserInput) Validate() error {
	if in.Name == nil && in.Email == nil && in.Password == nil && in.Role == nil {
		return &ValidationError{Fields: map[string]string{
			"body": "at least one field must be provided for update",
		}}
	}
	return asValidationError(validation.ValidateStruct(&in,
		validation.Field(&in.Name, append([]validation.Rule{validation.NilOrNotEmpty}, nameRules...)...),
		validation.Field(&in.Email, append([]validation.Rule{validation.NilOrNotEmpty}, emailRules...)...),
		validation.Field(&in.Password, append([]validation.Rule{validation.NilOrNotEmpty}, passwordRules...)...),
		validation.Field(&in.Role, append([]validation.Rule{validation.NilOrNotEmpty}, roleRules...)...),
	))
}

func fitsBcrypt(value interface{}) error {
	v, isNil := validation.Indirect(value)
	if isNil {
		return nil
	}
	s, _ := v.(string)
	if len(s) > maxPasswordBytes {
		return errors.New("must not exceed 72 bytes")
	}
	return nil
}

func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	fields := make(map[string]string, len(fieldErrs))
	for name, fieldErr := range fieldErrs {
		fields[name] = fieldErr.Error()
	}
	return &ValidationError{Fields: fields}
}
