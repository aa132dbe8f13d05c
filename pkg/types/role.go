package types

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTrainer Role = "trainer"
	RoleMember  Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTrainer || r == RoleMember
}
