// Package event defines the closed set of events the sync layer reacts to.
//
// Each kind is a struct implementing Event. Consumers dispatch with a type
// switch; adding a kind means adding a case everywhere Event is handled.
package event

import "errors"

// ErrUnknownEvent is returned by Decode for names outside the known set.
var ErrUnknownEvent = errors.New("unknown event")

// Event is implemented only by the kinds in this package.
type Event interface {
	// Name is the canonical bus name, e.g. "clerk/user.created".
	Name() string
	isEvent()
}

// Canonical event names as they travel on the bus.
const (
	NameUserCreated         = "clerk/user.created"
	NameUserUpdated         = "clerk/user.updated"
	NameUserDeleted         = "clerk/user.deleted"
	NameOrganizationCreated = "clerk/organization.created"
	NameOrganizationUpdated = "clerk/organization.updated"
	NameOrganizationDeleted = "clerk/organization.deleted"
	NameMembershipCreated   = "clerk/organizationMembership.created"
	NameTaskAssigned        = "app/task.assigned"
)

// Names lists every event the sync layer subscribes to.
var Names = []string{
	NameUserCreated,
	NameUserUpdated,
	NameUserDeleted,
	NameOrganizationCreated,
	NameOrganizationUpdated,
	NameOrganizationDeleted,
	NameMembershipCreated,
	NameTaskAssigned,
}

// UserProfile carries the identity fields shared by user created and updated.
type UserProfile struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	ImageURL  string
}

type UserCreated struct{ UserProfile }

type UserUpdated struct{ UserProfile }

type UserDeleted struct {
	ID string
}

// Organization carries the fields shared by organization created and updated.
type Organization struct {
	ID        string
	Name      string
	Slug      string
	ImageURL  string
	CreatedBy string
}

type OrganizationCreated struct{ Organization }

type OrganizationUpdated struct{ Organization }

type OrganizationDeleted struct {
	ID string
}

type MembershipCreated struct {
	ID             string
	OrganizationID string
	UserID         string
	Role           string
}

// TaskAssigned is emitted by the application when a task gains an assignee.
// Origin is the browser origin used to build the link in the mail.
type TaskAssigned struct {
	TaskID string `json:"taskId"`
	Origin string `json:"origin"`
}

func (UserCreated) Name() string         { return NameUserCreated }
func (UserUpdated) Name() string         { return NameUserUpdated }
func (UserDeleted) Name() string         { return NameUserDeleted }
func (OrganizationCreated) Name() string { return NameOrganizationCreated }
func (OrganizationUpdated) Name() string { return NameOrganizationUpdated }
func (OrganizationDeleted) Name() string { return NameOrganizationDeleted }
func (MembershipCreated) Name() string   { return NameMembershipCreated }
func (TaskAssigned) Name() string        { return NameTaskAssigned }

func (UserCreated) isEvent()         {}
func (UserUpdated) isEvent()         {}
func (UserDeleted) isEvent()         {}
func (OrganizationCreated) isEvent() {}
func (OrganizationUpdated) isEvent() {}
func (OrganizationDeleted) isEvent() {}
func (MembershipCreated) isEvent()   {}
func (TaskAssigned) isEvent()        {}
