package enums

// MemberRole is the actor role carried in access tokens. Owners edit the
// catalog and work orders; staff only work orders.
type MemberRole string

const (
	MemberRoleOwner MemberRole = "owner"
	MemberRoleStaff MemberRole = "staff"
)

var memberRoles = newClosedSet("member role", MemberRoleOwner, MemberRoleStaff)

func (m MemberRole) String() string { return string(m) }

func (m MemberRole) IsValid() bool { return memberRoles.has(m) }

func ParseMemberRole(value string) (MemberRole, error) { return memberRoles.parse(value) }
