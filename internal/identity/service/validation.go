package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

const (
	maxEmailLen    = 100
	maxNameLen     = 50
	maxPasswordLen = 72 // bcrypt input limit
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegister(in *RegisterInput) error {
	var ve ValidationError
	switch n := utf8.RuneCountInString(in.Username); {
	case in.Username == "":
		ve.add("username", "Username is required")
	case n < 2 || n > 50:
		ve.add("username", "Username must be between 2 and 50 characters")
	case !usernamePattern.MatchString(in.Username):
		ve.add("username", "Username may only contain letters, digits, '.', '_' and '-'")
	}
	validateEmailField(&ve, in.Email)
	validateName(&ve, "firstName", "First name", in.FirstName)
	validateName(&ve, "lastName", "Last name", in.LastName)
	validatePasswordField(&ve, in.Password)
	return ve.orNil()
}

func validateLogin(in *LoginInput) error {
	var ve ValidationError
	if in.Email == "" {
		ve.add("email", "Email is required")
	}
	if in.Password == "" {
		ve.add("password", "Password is required")
	}
	return ve.orNil()
}

func validateEmailField(ve *ValidationError, email string) {
	switch {
	case email == "":
		ve.add("email", "Email is required")
	case len(email) > maxEmailLen:
		ve.add("email", "Email must not exceed 100 characters")
	case !emailPattern.MatchString(email):
		ve.add("email", "Email must be valid")
	}
}

func validateName(ve *ValidationError, field, label, v string) {
	switch n := utf8.RuneCountInString(v); {
	case n == 0:
		ve.add(field, label+" is required")
	case n > maxNameLen:
		ve.add(field, label+" must not exceed 50 characters")
	}
}

func validatePasswordField(ve *ValidationError, pw string) {
	switch {
	case pw == "":
		ve.add("password", "Password is required")
	case len(pw) > maxPasswordLen:
		ve.add("password", "Password must not exceed 72 bytes")
	}
}
