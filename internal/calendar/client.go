package calendar

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/teemow/odoocal/internal/rpc"
)

// Server routes, models and keys used by the calendar module
const (
	ModelContacts = "calendar.contacts"
	ModelPartner  = "res.partner"
	ModelEvent    = "calendar.event"

	RouteNotify     = "/calendar/notify"
	RouteNotifyAck  = "/calendar/notify_ack"
	RouteLoadAction = "/web/action/load"

	// ActionEventNotify is the action opened from an event notification
	ActionEventNotify = "calendar.action_calendar_event_notify"

	// anonymousLogin is the login of the public user
	anonymousLogin = "anonymous"
)

// Caller is the subset of *rpc.Client the calendar operations need
type Caller interface {
	Call(ctx context.Context, route string, params any, dst any, opts ...rpc.CallOption) error
	CallKW(ctx context.Context, model, method string, args []any, kwargs map[string]any, dst any, opts ...rpc.CallOption) error
}

// Client wraps the calendar module's server operations
type Client struct {
	caller Caller
}

// NewClient creates a calendar client on top of an RPC caller
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

// Favorites lists the calendar contacts of the user uid
func (c *Client) Favorites(ctx context.Context, uid int64) ([]Contact, error) {
	kwargs := map[string]any{
		"domain": []any{[]any{"user_id", "=", uid}},
		"fields": []string{"partner_id"},
	}

	var contacts []Contact
	if err := c.caller.CallKW(ctx, ModelContacts, "search_read", nil, kwargs, &contacts); err != nil {
		return nil, fmt.Errorf("failed to list favorite calendars: %w", err)
	}
	return contacts, nil
}

// Create adds partnerID to the current user's favorite calendars
func (c *Client) Create(ctx context.Context, partnerID int64) (int64, error) {
	args := []any{map[string]any{"partner_id": partnerID}}

	var id int64
	if err := c.caller.CallKW(ctx, ModelContacts, "create", args, nil, &id); err != nil {
		return 0, fmt.Errorf("failed to create favorite calendar for partner %d: %w", partnerID, err)
	}
	return id, nil
}

// UnlinkFromPartnerID removes partnerID from the current user's favorite calendars
func (c *Client) UnlinkFromPartnerID(ctx context.Context, partnerID int64) (bool, error) {
	var ok bool
	if err := c.caller.CallKW(ctx, ModelContacts, "unlink_from_partner_id", []any{partnerID}, nil, &ok); err != nil {
		return false, fmt.Errorf("failed to remove favorite calendar for partner %d: %w", partnerID, err)
	}
	return ok, nil
}

// Due fetches pending event notifications. The call is always a shadow call
// and its errors are returned unwrapped so callers can classify them.
func (c *Client) Due(ctx context.Context) ([]DueNotification, error) {
	var due []DueNotification
	if err := c.caller.Call(ctx, RouteNotify, map[string]any{}, &due, rpc.WithShadow()); err != nil {
		return nil, err
	}
	return due, nil
}

// Acknowledge tells the server the pending notifications were seen
func (c *Client) Acknowledge(ctx context.Context) error {
	if err := c.caller.Call(ctx, RouteNotifyAck, nil, nil); err != nil {
		return fmt.Errorf("failed to acknowledge notifications: %w", err)
	}
	return nil
}

// AttendeeDetails returns one row per partner for the attendee tags of an
// event. recordID is nil for an unsaved event.
func (c *Client) AttendeeDetails(ctx context.Context, partnerIDs []int64, recordID *int64) ([]AttendeeRow, error) {
	ids := make([]any, len(partnerIDs))
	for i, id := range partnerIDs {
		ids[i] = id
	}
	var record any = false
	if recordID != nil {
		record = *recordID
	}

	var rows []AttendeeRow
	if err := c.caller.CallKW(ctx, ModelPartner, "get_attendee_detail", []any{ids, record}, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to get attendee details: %w", err)
	}
	return rows, nil
}

// LoadAction loads the client action identified by key (an xml id or a numeric id)
func (c *Client) LoadAction(ctx context.Context, key string) (Action, error) {
	var action Action
	if err := c.caller.Call(ctx, RouteLoadAction, map[string]any{"action_id": key}, &action); err != nil {
		return nil, fmt.Errorf("failed to load action %s: %w", key, err)
	}
	if action == nil {
		return nil, fmt.Errorf("action %s not found", key)
	}
	return action, nil
}

// InvitationURL returns the web client URL of the event form when session is
// a logged-in session of db. Otherwise it returns false and the caller renders
// the invitation from the attendee data.
func InvitationURL(session *rpc.Session, db string, eventID int64) (string, bool) {
	if !session.ValidFor(db) || session.Anonymous() || session.Login == anonymousLogin {
		return "", false
	}
	return FormURL(db, ModelEvent, eventID), true
}

// FormURL returns the relative web client URL of a record's form view
func FormURL(db, model string, id int64) string {
	return "/web?db=" + url.QueryEscape(db) + "#id=" + strconv.FormatInt(id, 10) + "&view_type=form&model=" + model
}

// ActionURL returns the relative web client URL that opens action
func ActionURL(db string, action Action) string {
	u := FormURL(db, action.ResModel(), action.ResID())
	switch id := action["id"].(type) {
	case float64:
		u += "&action=" + strconv.FormatInt(int64(id), 10)
	case int64:
		u += "&action=" + strconv.FormatInt(id, 10)
	case int:
		u += "&action=" + strconv.Itoa(id)
	}
	return u
}
