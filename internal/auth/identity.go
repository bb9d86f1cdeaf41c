package auth

// Role is the coarse authorization level carried in access tokens.
type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Identity is the already-authenticated requester. It is passed explicitly
// into every core operation; the core never reads it from ambient state.
type Identity struct {
	MemberID int
	Email    string
	Role     Role
}

// IsStaff reports whether the requester may act on other members' records.
func (i Identity) IsStaff() bool {
	return i.Role == RoleStaff || i.Role == RoleAdmin
}

// CanActFor reports whether the requester may act on memberID's records.
func (i Identity) CanActFor(memberID int) bool {
	return i.MemberID == memberID || i.IsStaff()
}
