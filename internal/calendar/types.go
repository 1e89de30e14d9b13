package calendar

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teemow/odoocal/internal/rpc"
)

// Contact is a favorite calendar of a user, stored as a calendar.contacts record
type Contact struct {
	// ID is the calendar.contacts record id
	ID int64 `json:"id"`

	// Partner is the partner whose calendar is followed
	Partner rpc.Many2One `json:"partner_id"`
}

// PartnerID returns the followed partner id
func (c Contact) PartnerID() int64 {
	return c.Partner.ID
}

// DisplayName returns the followed partner's name
func (c Contact) DisplayName() string {
	return c.Partner.Name
}

// DueNotification is an upcoming-event reminder returned by a poll
type DueNotification struct {
	EventID int64  `json:"event_id"`
	Title   string `json:"title"`
	Message string `json:"message"`

	// Timer is the number of seconds to wait before displaying
	Timer float64 `json:"timer"`
}

// Delay returns the display delay. Negative timers are clamped to zero.
func (n DueNotification) Delay() time.Duration {
	if n.Timer <= 0 {
		return 0
	}
	return time.Duration(n.Timer * float64(time.Second))
}

// AttendeeRow is one row of get_attendee_detail:
// [id, display_name, status, color]
type AttendeeRow []json.RawMessage

// Action is a client action descriptor as returned by /web/action/load
type Action map[string]any

// ResID returns the record the action is bound to, or 0.
func (a Action) ResID() int64 {
	switch v := a["res_id"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		id, _ := v.Int64()
		return id
	}
	return 0
}

// WithResID returns a copy of the action bound to the given record.
func (a Action) WithResID(id int64) Action {
	out := make(Action, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out["res_id"] = id
	return out
}

// ResModel returns the model the action targets.
func (a Action) ResModel() string {
	s, _ := a["res_model"].(string)
	return s
}

// String implements fmt.Stringer
func (a Action) String() string {
	name, _ := a["name"].(string)
	return fmt.Sprintf("action %q on %s(%d)", name, a.ResModel(), a.ResID())
}
