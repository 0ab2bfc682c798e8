package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"notes-client/internal/gateway"
	"notes-client/internal/remoteerr"
)

// Границы длины имени пользователя и пароля
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
)

// loginForm правила формы входа: синтаксис email и минимальная длина пароля,
// требования к составу пароля применяются только к новым паролям
type loginForm struct {
	Email    string `json:"email" validate:"required,email,email_domain"`
	Password string `json:"password" validate:"required,min=8"`
}

type registerForm struct {
	Email    string `json:"email" validate:"required,email,email_domain"`
	Username string `json:"username" validate:"required,min=3,max=30,username_charset"`
	Password string `json:"password" validate:"required,min=8,has_lower,has_upper,has_digit"`
}

// rules общий экземпляр validator (потокобезопасен, кэширует разбор тегов)
var rules = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках используем имена из json тегов
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister(v, "email_domain", func(fl validator.FieldLevel) bool {
		_, domain, ok := strings.Cut(fl.Field().String(), "@")
		if !ok {
			return false
		}
		dot := strings.LastIndex(domain, ".")
		return dot > 0 && dot < len(domain)-1
	})
	mustRegister(v, "username_charset", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r != '_' && !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
				return false
			}
		}
		return true
	})
	mustRegister(v, "has_lower", containsRune(unicode.IsLower))
	mustRegister(v, "has_upper", containsRune(unicode.IsUpper))
	mustRegister(v, "has_digit", containsRune(unicode.IsDigit))

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func containsRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

// ValidateEmail синтаксическая проверка email: local-part, '@', домен с точкой
func ValidateEmail(email string) error {
	return validateVar("email", strings.TrimSpace(email), "required,email,email_domain")
}

// ValidatePassword проверяет пароль. Для нового пароля требуется длина не меньше 8
// и хотя бы одна строчная, одна заглавная буква и цифра; для пароля входа -
// только непустое значение.
func ValidatePassword(password string, isNew bool) error {
	if isNew {
		return validateVar("password", password, "required,min=8,has_lower,has_upper,has_digit")
	}
	return validateVar("password", password, "required")
}

// ValidateUsername длина в [3,30], символы [A-Za-z0-9_]
func ValidateUsername(username string) error {
	return validateVar("username", strings.TrimSpace(username), "required,min=3,max=30,username_charset")
}

// ValidateLogin проверяет форму входа до обращения к шлюзу
func ValidateLogin(email, password string) error {
	return validateStruct(loginForm{Email: strings.TrimSpace(email), Password: password})
}

// ValidateRegistration проверяет форму регистрации до обращения к шлюзу
func ValidateRegistration(req gateway.RegisterRequest) error {
	return validateStruct(registerForm{
		Email:    strings.TrimSpace(req.Email),
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	})
}

func validateStruct(form any) error {
	if err := rules.Struct(form); err != nil {
		return formatError(err, "")
	}
	return nil
}

func validateVar(field, value, tag string) error {
	if err := rules.Var(value, tag); err != nil {
		return formatError(err, field)
	}
	return nil
}

// formatError превращает ошибки validator в ValidationError с кодами и сообщениями по полям.
// field задается для проверки одиночного значения (у FieldError нет имени поля).
func formatError(err error, field string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return remoteerr.Wrap(err, remoteerr.KindValidation, "validation failed")
	}

	codes := make([]string, 0, len(validationErrs))
	fields := make(map[string]string, len(validationErrs))
	var first string
	for _, e := range validationErrs {
		name := field
		if name == "" {
			name = e.Field()
		}
		codes = append(codes, codeFor(name, e.Tag()))
		msg := friendlyMessage(e)
		fields[name] = msg
		if first == "" {
			first = name + " " + msg
		}
	}

	return remoteerr.Validation(first, codes...).WithFields(fields)
}

// codeFor машинный код нарушения по полю и тегу
func codeFor(field, tag string) string {
	switch field {
	case "email":
		if tag == "required" {
			return remoteerr.CodeEmailRequired
		}
		return remoteerr.CodeInvalidEmail
	case "password":
		switch tag {
		case "required":
			return remoteerr.CodePasswordRequired
		case "min":
			return remoteerr.CodePasswordTooShort
		case "has_lower":
			return remoteerr.CodePasswordMissingLowercase
		case "has_upper":
			return remoteerr.CodePasswordMissingUppercase
		case "has_digit":
			return remoteerr.CodePasswordMissingDigit
		}
	case "username":
		switch tag {
		case "required":
			return remoteerr.CodeUsernameRequired
		case "min":
			return remoteerr.CodeUsernameTooShort
		case "max":
			return remoteerr.CodeUsernameTooLong
		default:
			return remoteerr.CodeInvalidUsername
		}
	}
	return remoteerr.CodeValidation
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email", "email_domain":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "username_charset":
		return "may contain only letters, digits and underscores"
	case "has_lower":
		return "must contain a lowercase letter"
	case "has_upper":
		return "must contain an uppercase letter"
	case "has_digit":
		return "must contain a digit"
	default:
		return "is invalid"
	}
}
