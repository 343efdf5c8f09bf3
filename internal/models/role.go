package models

// CanManageUsers reports whether r may run the account lifecycle operations.
func (r Role) CanManageUsers() bool { return r == RoleAdministrator }

// CanReadSources reports whether r may search and view sources.
func (r Role) CanReadSources() bool {
	return r == RoleSpecialist || r == RoleExternalAuthority
}

// CanWriteSources reports whether r may create and edit sources.
func (r Role) CanWriteSources() bool { return r == RoleSpecialist }

// Principal is the authenticated identity a session acts as.
type Principal struct {
	ID          int64
	Username    string
	DisplayName string
	Role        Role
}
