// Package validator checks and sanitizes untrusted register and login input
// before it reaches any domain logic.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names accepted from callers.
const (
	FieldEmail     = "email"
	FieldFirstName = "firstname"
	FieldLastName  = "lastname"
	FieldPassword  = "password"
)

const (
	minNameLength     = 3
	maxNameLength     = 20
	minPasswordLength = 8
	maxPasswordLength = 20
)

// Messages are part of the public contract and must not change.
const (
	MsgInvalidEmail    = "Invalid Email"
	MsgFirstNameLength = "Firstname must be between 3 and 20 characters"
	MsgFirstNameAlpha  = "Firstname must be alphanumeric"
	MsgLastNameLength  = "Lastname must be between 3 and 20 characters"
	MsgInvalidValue    = "Invalid value"
	MsgPasswordLength  = "Password must be between 8 and 20 characters"
)

// Violation is a single broken constraint on one field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Violations is the ordered result of a validation run. Empty means accepted.
type Violations []Violation

// Fields holds input values after sanitization (trimmed, email normalized).
type Fields map[string]string

// Get returns the sanitized value of field, or "" when absent.
func (f Fields) Get(field string) string {
	return f[field]
}

// rule is one step of a field's chain: either a sanitizer or a check
// expressed as a validator tag.
type rule struct {
	tag      string
	sanitize func(string) (string, bool)
	message  string
	// onlyIfValid skips the step once the field already has a violation.
	onlyIfValid bool
}

type fieldRules struct {
	field string
	rules []rule
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("email_tld", hasTopLevelDomain); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("email_length", withinEmailLimits); err != nil {
		panic(err)
	}
	return v
}

func trim(s string) (string, bool) {
	return strings.TrimSpace(s), true
}

func emailRules() fieldRules {
	return fieldRules{field: FieldEmail, rules: []rule{
		{sanitize: trim},
		{tag: "email,email_length,email_tld", message: MsgInvalidEmail},
		{sanitize: NormalizeEmail, message: MsgInvalidEmail, onlyIfValid: true},
	}}
}

func passwordRules() fieldRules {
	return fieldRules{field: FieldPassword, rules: []rule{
		{sanitize: trim},
		{tag: lengthTag(minPasswordLength, maxPasswordLength), message: MsgPasswordLength},
	}}
}

var registerRules = []fieldRules{
	emailRules(),
	{field: FieldFirstName, rules: []rule{
		{sanitize: trim},
		{tag: lengthTag(minNameLength, maxNameLength), message: MsgFirstNameLength},
		{tag: "alpha", message: MsgFirstNameAlpha},
	}},
	{field: FieldLastName, rules: []rule{
		{sanitize: trim},
		{tag: lengthTag(minNameLength, maxNameLength), message: MsgLastNameLength},
		{tag: "alpha", message: MsgInvalidValue},
	}},
	passwordRules(),
}

var loginRules = []fieldRules{
	emailRules(),
	passwordRules(),
}

// ValidateRegister runs the registration rule-set against input.
func ValidateRegister(input map[string]string) (Fields, Violations) {
	return run(registerRules, input)
}

// ValidateLogin runs the login rule-set against input.
func ValidateLogin(input map[string]string) (Fields, Violations) {
	return run(loginRules, input)
}

// run evaluates every rule of every field; a field keeps collecting
// violations after its first failure.
func run(set []fieldRules, input map[string]string) (Fields, Violations) {
	fields := make(Fields, len(set))
	violations := Violations{}

	for _, fr := range set {
		value := input[fr.field]
		broken := false

		for _, r := range fr.rules {
			if r.onlyIfValid && broken {
				continue
			}

			if r.sanitize != nil {
				out, ok := r.sanitize(value)
				if !ok {
					violations = append(violations, Violation{Field: fr.field, Message: r.message})
					broken = true
					continue
				}
				value = out
				continue
			}

			if err := validate.Var(value, r.tag); err != nil {
				violations = append(violations, Violation{Field: fr.field, Message: r.message})
				broken = true
			}
		}

		fields[fr.field] = value
	}

	return fields, violations
}

func lengthTag(min, max int) string {
	return fmt.Sprintf("min=%d,max=%d", min, max)
}
