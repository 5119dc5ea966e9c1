package enums

// UserRole gates the admin surface.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return r == UserRoleUser || r == UserRoleAdmin }
