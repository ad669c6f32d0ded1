package credential

// Role represents a user's authorization level.
type Role string

const (
	// RoleStandard is the default role for new accounts
	RoleStandard Role = "user"
	// RoleElevated grants access to write operations (create/delete posts, AI generation)
	RoleElevated Role = "admin"
)

// ParseRole normalises a stored or transported role value. Anything that is
// not exactly the elevated role is treated as standard, so a tampered or
// unknown value can never grant elevated access.
func ParseRole(s string) Role {
	if s == string(RoleElevated) {
		return RoleElevated
	}
	return RoleStandard
}

// Claim holds the identity facts a credential asserts. A Claim extracted
// from a credential is only trustworthy if Verify returned it.
type Claim struct {
	SubjectID string `json:"userId"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// Elevated reports whether the claim's role allows write operations.
func (c Claim) Elevated() bool {
	return c.Role == RoleElevated
}
