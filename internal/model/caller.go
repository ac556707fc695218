package model

// Role is the authorization classification carried in the caller's token.
type Role string

const (
	RoleCitizen    Role = "CITIZEN"
	RolePolice     Role = "POLICE"
	RoleRTOOfficer Role = "RTO_OFFICER"
	RoleRTOAdmin   Role = "RTO_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RolePolice, RoleRTOOfficer, RoleRTOAdmin:
		return true
	}
	return false
}

// Caller is the authenticated principal on whose behalf an operation runs.
type Caller struct {
	UserID string
	Role   Role
}

func (c Caller) IsOfficer() bool { return c.Role == RoleRTOOfficer }

func (c Caller) IsAdmin() bool { return c.Role == RoleRTOAdmin }

// IsStaff reports whether the caller may review and verify documents.
func (c Caller) IsStaff() bool { return c.IsOfficer() || c.IsAdmin() }

// Owns reports whether the caller is the given user.
func (c Caller) Owns(userID string) bool {
	return c.UserID != "" && c.UserID == userID
}
