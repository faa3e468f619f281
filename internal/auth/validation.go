package auth

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("email_address", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf16Len(strings.TrimSpace(fl.Field().String())) >= n
	})
	_ = v.RegisterValidation("utf16_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf16Len(fl.Field().String()) >= n
	})
	_ = v.RegisterValidation("has_lower", containsRune(inRange('a', 'z')))
	_ = v.RegisterValidation("has_upper", containsRune(inRange('A', 'Z')))
	_ = v.RegisterValidation("has_digit", containsRune(inRange('0', '9')))
	return v
}

// utf16Len counts UTF-16 code units, the unit browsers use for string length.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// inRange matches ASCII characters only; accented letters and non-Latin digits
// do not satisfy the character-class rules.
func inRange(lo, hi rune) func(rune) bool {
	return func(r rune) bool { return lo <= r && r <= hi }
}

func containsRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

// ValidationError carries field-scoped messages plus the single message shown
// for the whole form.
type ValidationError struct {
	Fields  map[string]string `json:"fields"`
	Message string            `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SignUpForm is the registration form as submitted.
type SignUpForm struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// Metadata returns the profile fields stored with the account.
func (f SignUpForm) Metadata() map[string]interface{} {
	return map[string]interface{}{"full_name": strings.TrimSpace(f.Name)}
}

// passwordRules are checked in order; the first failure wins.
var passwordRules = []struct {
	tag     string
	message string
}{
	{"utf16_min=8", "Password must be at least 8 characters long"},
	{"has_lower", "Password must contain at least one lowercase letter"},
	{"has_upper", "Password must contain at least one uppercase letter"},
	{"has_digit", "Password must contain at least one number"},
}

// ValidatePassword returns the message for the first rule password breaks, or "".
func ValidatePassword(password string) string {
	for _, rule := range passwordRules {
		if err := validate.Var(password, rule.tag); err != nil {
			return rule.message
		}
	}
	return ""
}

// ValidateEmail returns the field message for an invalid address, or "".
func ValidateEmail(email string) string {
	if validate.Var(email, "required") != nil {
		return "Email is required"
	}
	if validate.Var(email, "email_address") != nil {
		return "Please enter a valid email address"
	}
	return ""
}

// Validate checks the form before any network call.
func (f SignUpForm) Validate() *ValidationError {
	fields := make(map[string]string)

	if validate.Var(f.Name, "trimmed_min=2") != nil {
		fields["name"] = "Name must be at least 2 characters"
	}
	if msg := ValidateEmail(f.Email); msg != "" {
		fields["email"] = msg
	}
	if len(fields) > 0 {
		msg := fields["name"]
		if msg == "" {
			msg = fields["email"]
		}
		return &ValidationError{Fields: fields, Message: msg}
	}

	if validate.Var(f.Password, "required") != nil {
		return &ValidationError{Fields: fields, Message: "Password is required"}
	}
	if f.Password != f.ConfirmPassword {
		fields["confirm_password"] = "Passwords do not match"
		return &ValidationError{Fields: fields, Message: "Passwords do not match"}
	}
	if msg := ValidatePassword(f.Password); msg != "" {
		fields["password"] = msg
		return &ValidationError{Fields: fields, Message: msg}
	}
	return nil
}
