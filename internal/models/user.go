// Package models holds the domain records shared by repositories, services
// and the CLI.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Role is the user role as stored in users.user_role.
type Role int

const (
	RoleAdministrator     Role = 1
	RoleSpecialist        Role = 2
	RoleExternalAuthority Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleAdministrator:
		return "Administrator"
	case RoleSpecialist:
		return "Specialist"
	case RoleExternalAuthority:
		return "External Authority"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r >= RoleAdministrator && r <= RoleExternalAuthority
}

// ParseRole accepts the numeric storage encoding ("1".."3").
func ParseRole(s string) (Role, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || !Role(n).Valid() {
		return 0, fmt.Errorf("invalid role %q", s)
	}
	return Role(n), nil
}

// Status governs login eligibility. Encoded as 1=Active, 2=Deactivated, 3=Locked.
type Status int

const (
	StatusActive      Status = 1
	StatusDeactivated Status = 2
	StatusLocked      Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusDeactivated:
		return "Deactivated"
	case StatusLocked:
		return "Locked"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) Valid() bool {
	return s >= StatusActive && s <= StatusLocked
}

// User is a persisted identity record. CredentialHash is an opaque
// self-describing argon2id string and must never be printed or logged.
type User struct {
	ID             int64
	FirstName      string
	LastName       string
	DOB            string // YYYY-MM-DD
	Email          string
	UserName       string
	CredentialHash string
	Role           Role
	Status         Status
	LastLogin      *time.Time
}

// DisplayName is what the interactive session greets the user with.
func (u *User) DisplayName() string {
	return u.FirstName
}

// FirstLogin reports whether the user has never completed a login.
func (u *User) FirstLogin() bool {
	return u.LastLogin == nil
}

// UserField names an attribute an administrator may edit. Only the values
// declared below are accepted; anything else is rejected before any storage
// access happens.
type UserField string

const (
	FieldFirstName UserField = "first_name"
	FieldLastName  UserField = "last_name"
	FieldDOB       UserField = "dob"
	FieldRole      UserField = "role"
)

// EditableUserFields lists the allow-list in menu order.
var EditableUserFields = []UserField{FieldFirstName, FieldLastName, FieldDOB, FieldRole}

// ParseUserField maps an externally supplied name onto the allow-list.
func ParseUserField(s string) (UserField, bool) {
	for _, f := range EditableUserFields {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// Value returns the current value of f on u in its audit (string) form.
func (u *User) Value(f UserField) string {
	switch f {
	case FieldFirstName:
		return u.FirstName
	case FieldLastName:
		return u.LastName
	case FieldDOB:
		return u.DOB
	case FieldRole:
		return strconv.Itoa(int(u.Role))
	default:
		return ""
	}
}
