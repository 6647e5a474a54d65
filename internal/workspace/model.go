package workspace

import "time"

// Workspace mirrors an identity provider organization. ID is the provider's
// organization id and OwnerID the provider user id of its creator.
type Workspace struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ImageURL  string    `json:"image_url"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is a workspace member's role. Only two values exist.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// ProviderAdminRole is the identity provider's role string for organization admins.
const ProviderAdminRole = "org:admin"

// RoleFromProvider maps a provider role string onto a workspace role.
// "org:admin" is ADMIN; every other value, including unknown custom roles, is MEMBER.
func RoleFromProvider(providerRole string) Role {
	if providerRole == ProviderAdminRole {
		return RoleAdmin
	}
	return RoleMember
}

// Valid reports whether r is one of the two workspace roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Member is a user's membership in a workspace.
type Member struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// MemberProfile is a membership joined with the member's user row.
type MemberProfile struct {
	Member
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Summary is a workspace with its member count.
type Summary struct {
	Workspace
	MemberCount int `json:"member_count"`
}
