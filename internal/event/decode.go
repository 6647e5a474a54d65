package event

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Decode builds the Event for name from its JSON data payload.
// Both bus-prefixed names ("clerk/user.created") and bare provider
// names ("user.created") are accepted.
func Decode(name string, data []byte) (Event, error) {
	if len(data) > 0 && !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid %s payload: malformed JSON", name)
	}
	payload := gjson.ParseBytes(data)

	switch canonical(name) {
	case NameUserCreated:
		return UserCreated{userProfile(payload)}, nil
	case NameUserUpdated:
		return UserUpdated{userProfile(payload)}, nil
	case NameUserDeleted:
		return UserDeleted{ID: payload.Get("id").String()}, nil
	case NameOrganizationCreated:
		return OrganizationCreated{organization(payload)}, nil
	case NameOrganizationUpdated:
		return OrganizationUpdated{organization(payload)}, nil
	case NameOrganizationDeleted:
		return OrganizationDeleted{ID: payload.Get("id").String()}, nil
	case NameMembershipCreated:
		return MembershipCreated{
			ID:             payload.Get("id").String(),
			OrganizationID: payload.Get("organization.id").String(),
			UserID:         payload.Get("public_user_data.user_id").String(),
			Role:           payload.Get("role").String(),
		}, nil
	case NameTaskAssigned:
		return TaskAssigned{
			TaskID: payload.Get("taskId").String(),
			Origin: payload.Get("origin").String(),
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// canonical maps a bare or prefixed name onto its bus name.
func canonical(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, "/") {
		return name
	}
	if name == "task.assigned" {
		return NameTaskAssigned
	}
	return "clerk/" + name
}

func userProfile(p gjson.Result) UserProfile {
	return UserProfile{
		ID:        p.Get("id").String(),
		Email:     p.Get("email_addresses.0.email_address").String(),
		FirstName: p.Get("first_name").String(),
		LastName:  p.Get("last_name").String(),
		ImageURL:  p.Get("image_url").String(),
	}
}

func organization(p gjson.Result) Organization {
	return Organization{
		ID:        p.Get("id").String(),
		Name:      p.Get("name").String(),
		Slug:      p.Get("slug").String(),
		ImageURL:  p.Get("image_url").String(),
		CreatedBy: p.Get("created_by").String(),
	}
}

// Envelope is one event delivery as it arrives over HTTP or sits on the queue.
type Envelope struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"ts,omitempty"`
}

// Time returns the envelope timestamp, which the bus sends in milliseconds.
func (e Envelope) Time() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Timestamp)
}

// DecodeEnvelope parses a delivery body. The bus either posts the event
// itself ({"name":...,"data":...}) or wraps it ({"event":{...}}).
func DecodeEnvelope(body []byte) (Envelope, error) {
	if !gjson.ValidBytes(body) {
		return Envelope{}, fmt.Errorf("invalid envelope: malformed JSON")
	}

	root := gjson.ParseBytes(body)
	if wrapped := root.Get("event"); wrapped.IsObject() {
		root = wrapped
	}

	env := Envelope{
		ID:        root.Get("id").String(),
		Name:      root.Get("name").String(),
		Timestamp: root.Get("ts").Int(),
	}
	if env.Name == "" {
		return Envelope{}, fmt.Errorf("invalid envelope: missing event name")
	}
	if data := root.Get("data"); data.Exists() {
		env.Data = json.RawMessage(data.Raw)
	}

	return env, nil
}

// Encode renders an event as an envelope whose data has the same shape
// the provider sends, so Decode(env.Name, env.Data) yields e again.
func Encode(e Event) (Envelope, error) {
	data, err := json.Marshal(payload(e))
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s: %w", e.Name(), err)
	}
	return Envelope{Name: e.Name(), Data: data, Timestamp: time.Now().UnixMilli()}, nil
}

type object = map[string]any

func payload(e Event) any {
	switch e := e.(type) {
	case UserCreated:
		return userPayload(e.UserProfile)
	case UserUpdated:
		return userPayload(e.UserProfile)
	case UserDeleted:
		return object{"id": e.ID, "deleted": true}
	case OrganizationCreated:
		return organizationPayload(e.Organization)
	case OrganizationUpdated:
		return organizationPayload(e.Organization)
	case OrganizationDeleted:
		return object{"id": e.ID, "deleted": true}
	case MembershipCreated:
		return object{
			"id":               e.ID,
			"role":             e.Role,
			"organization":     object{"id": e.OrganizationID},
			"public_user_data": object{"user_id": e.UserID},
		}
	case TaskAssigned:
		return e
	}
	return nil
}

func userPayload(u UserProfile) object {
	return object{
		"id":              u.ID,
		"email_addresses": []object{{"email_address": u.Email}},
		"first_name":      u.FirstName,
		"last_name":       u.LastName,
		"image_url":       u.ImageURL,
	}
}

func organizationPayload(o Organization) object {
	return object{
		"id":         o.ID,
		"name":       o.Name,
		"slug":       o.Slug,
		"image_url":  o.ImageURL,
		"created_by": o.CreatedBy,
	}
}
