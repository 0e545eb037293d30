package model

// Role names carried in the access token "role" claim.
const (
	RoleUser   = "USER"
	RoleMentor = "MENTOR"
	RoleAdmin  = "ADMIN"
)

// Principal is the authenticated caller supplied by the auth middleware.
// The booking core trusts ID as already verified.
type Principal struct {
	ID   string
	Role string
}

// IsAdmin reports whether the caller has platform administrator rights.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
