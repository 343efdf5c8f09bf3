package services

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/suspectsources/internal/common"
)

const (
	MinPasswordLength = 12
	MinUsernameLength = 5
	MinNameLength     = 3
	DateLayout        = "2006-01-02"

	// PasswordSpecials are the characters that satisfy the special
	// character rule of the password policy.
	PasswordSpecials = `[@_!#$%^&*()<>?/\}{~:;]-.,`
)

func policyErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrPolicyViolation, fmt.Sprintf(format, args...))
}

// ValidatePassword applies the password policy to a new secret.
func ValidatePassword(pw []byte) error {
	s := string(pw)
	if len([]rune(s)) < MinPasswordLength {
		return policyErr("password must be at least %d characters", MinPasswordLength)
	}
	var letter, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	if !letter || !digit || !special {
		return policyErr("password needs a letter, a digit and one of %s", PasswordSpecials)
	}
	return nil
}

// ValidateUsername checks the shape of a typed login name.
func ValidateUsername(s string) error {
	if len([]rune(s)) < MinUsernameLength {
		return policyErr("username must be at least %d characters", MinUsernameLength)
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("._-", r) {
			return policyErr("username may contain letters, digits and . _ -")
		}
	}
	return nil
}

// ValidateName checks a first or last name.
func ValidateName(s string) error {
	if len([]rune(strings.TrimSpace(s))) < MinNameLength {
		return policyErr("name must be at least %d characters", MinNameLength)
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' {
			return policyErr("name may contain letters, spaces and hyphens")
		}
	}
	return nil
}

// ValidateEmail accepts local@domain.tld built from letters, digits and
// -._+ ending in a letter.
func ValidateEmail(s string) error {
	if strings.Count(s, "@") != 1 || !strings.Contains(s, ".") {
		return policyErr("email must contain one @ and a dot")
	}
	local, domain, _ := strings.Cut(s, "@")
	if local == "" || domain == "" || !strings.Contains(domain, ".") {
		return policyErr("email must look like name@domain.tld")
	}
	last := []rune(s)[len([]rune(s))-1]
	if !unicode.IsLetter(last) {
		return policyErr("email must end with a letter")
	}
	for _, r := range s {
		if r != '@' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("-._+", r) {
			return policyErr("email contains %q", r)
		}
	}
	return nil
}

// ValidateDOB requires a real calendar date in YYYY-MM-DD form, not in the
// future.
func ValidateDOB(s string, now time.Time) error {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return policyErr("date of birth must be YYYY-MM-DD")
	}
	if d.After(now) {
		return policyErr("date of birth is in the future")
	}
	return nil
}

// ValidateURL accepts absolute URLs with a host.
func ValidateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return policyErr("url must be absolute, e.g. http://host/path")
	}
	return nil
}

// ValidateText requires non-blank free text.
func ValidateText(what, s string) error {
	if strings.TrimSpace(s) == "" {
		return policyErr("%s must not be empty", what)
	}
	return nil
}
