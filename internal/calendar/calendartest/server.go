// Package calendartest provides a fake calendar server for testing.
//
// It keeps favorite calendars, pending notifications and attendee details in
// memory and answers the JSON-RPC routes used by the calendar package.
package calendartest

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"github.com/teemow/odoocal/internal/calendar"
	"github.com/teemow/odoocal/internal/rpc"
	"github.com/teemow/odoocal/internal/rpc/rpctest"
)

// Default identity of the fake server
const (
	DB        = "prod"
	Login     = "admin@example.com"
	Password  = "admin"
	UID       = int64(2)
	PartnerID = int64(3)
	UserName  = "Mitchell Admin"

	// ActionID is the numeric id of the notification action
	ActionID = int64(311)
)

type contact struct {
	userID    int64
	partnerID int64
}

// Attendee is the detail row served for a partner
type Attendee struct {
	Name   string
	Status string
	Color  int
}

// Server is a fake calendar server.
type Server struct {
	*rpctest.Server

	mu         sync.Mutex
	partners   map[int64]string
	contacts   map[int64]contact
	nextID     int64
	due        []calendar.DueNotification
	attendees  map[int64]Attendee
	acks       int
	failCreate map[int64]*rpc.Error
	failNotify *rpc.Error
}

// NewServer starts a fake calendar server with the default user.
func NewServer() *Server {
	s := &Server{
		Server:     rpctest.NewServer(),
		partners:   map[int64]string{PartnerID: UserName},
		contacts:   make(map[int64]contact),
		nextID:     1,
		attendees:  make(map[int64]Attendee),
		failCreate: make(map[int64]*rpc.Error),
	}

	s.Handle("/web/session/authenticate", s.authenticate)
	s.Handle("/web/session/get_session_info", s.sessionInfo)
	s.HandleResult("/web/session/destroy", nil)
	s.Handle("/web/dataset/call_kw/calendar.contacts/search_read", s.searchRead)
	s.Handle("/web/dataset/call_kw/calendar.contacts/create", s.create)
	s.Handle("/web/dataset/call_kw/calendar.contacts/unlink_from_partner_id", s.unlink)
	s.Handle("/web/dataset/call_kw/res.partner/get_attendee_detail", s.attendeeDetail)
	s.Handle(calendar.RouteNotify, s.notify)
	s.Handle(calendar.RouteNotifyAck, s.notifyAck)
	s.Handle(calendar.RouteLoadAction, s.loadAction)
	return s
}

// AddPartner registers a partner name.
func (s *Server) AddPartner(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partners[id] = name
}

// AddContact makes partnerID a favorite of the default user and returns the record id.
func (s *Server) AddContact(partnerID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addContactLocked(UID, partnerID)
}

func (s *Server) addContactLocked(userID, partnerID int64) int64 {
	id := s.nextID
	s.nextID++
	s.contacts[id] = contact{userID: userID, partnerID: partnerID}
	return id
}

// ContactPartnerIDs returns the favorite partner ids of the default user, sorted.
func (s *Server) ContactPartnerIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for _, c := range s.contacts {
		if c.userID == UID {
			ids = append(ids, c.partnerID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SetDue sets the notifications returned by every poll.
func (s *Server) SetDue(due ...calendar.DueNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.due = due
}

// SetAttendee sets the detail row served for partnerID.
func (s *Server) SetAttendee(partnerID int64, a Attendee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendees[partnerID] = a
}

// FailCreate makes creating a contact for partnerID fail with err.
func (s *Server) FailCreate(partnerID int64, err *rpc.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[partnerID] = err
}

// FailNotify makes polls fail with err; nil restores normal answers.
func (s *Server) FailNotify(err *rpc.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNotify = err
}

// Acks returns the number of acknowledgements received.
func (s *Server) Acks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acks
}

func sessionInfo() map[string]any {
	return map[string]any{
		"uid":          UID,
		"partner_id":   PartnerID,
		"name":         UserName,
		"db":           DB,
		"username":     Login,
		"user_context": map[string]any{"lang": "en_US", "tz": "UTC", "uid": UID},
	}
}

func serverError(name, message string) *rpc.Error {
	return &rpc.Error{
		Code:    200,
		Message: "Odoo Server Error",
		Data:    &rpc.ErrorData{Name: name, Message: message},
	}
}

func (s *Server) authenticate(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
	var p struct {
		DB       string `json:"db"`
		Login    string `json:"login"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, serverError("ValueError", err.Error())
	}
	if p.DB != DB || p.Login != Login || p.Password != Password {
		return nil, serverError("odoo.exceptions.AccessDenied", "Access Denied")
	}
	return sessionInfo(), nil
}

func (s *Server) sessionInfo(*http.Request, json.RawMessage) (any, *rpc.Error) {
	return sessionInfo(), nil
}

type callKWParams struct {
	Args   []json.RawMessage `json:"args"`
	Kwargs struct {
		Domain []json.RawMessage `json:"domain"`
		Fields []string          `json:"fields"`
	} `json:"kwargs"`
}

func decodeCallKW(params json.RawMessage) (callKWParams, *rpc.Error) {
	var p callKWParams
	if err := json.Unmarshal(params, &p); err != nil {
		return p, serverError("ValueError", err.Error())
	}
	return p, nil
}

func (s *Server) searchRead(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
	p, rpcErr := decodeCallKW(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	userID := int64(-1)
	for _, term := range p.Kwargs.Domain {
		var leaf []json.RawMessage
		if err := json.Unmarshal(term, &leaf); err != nil || len(leaf) != 3 {
			continue
		}
		var field string
		_ = json.Unmarshal(leaf[0], &field)
		if field == "user_id" {
			_ = json.Unmarshal(leaf[2], &userID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.contacts))
	for id := range s.contacts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		c := s.contacts[id]
		if userID >= 0 && c.userID != userID {
			continue
		}
		rows = append(rows, map[string]any{
			"id":         id,
			"partner_id": []any{c.partnerID, s.partners[c.partnerID]},
		})
	}
	return rows, nil
}

func (s *Server) create(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
	p, rpcErr := decodeCallKW(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(p.Args) != 1 {
		return nil, serverError("TypeError", "create() takes exactly one values dict")
	}
	var vals struct {
		PartnerID int64 `json:"partner_id"`
	}
	if err := json.Unmarshal(p.Args[0], &vals); err != nil {
		return nil, serverError("ValueError", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failCreate[vals.PartnerID]; ok {
		return nil, err
	}
	for _, c := range s.contacts {
		if c.userID == UID && c.partnerID == vals.PartnerID {
			return nil, serverError("psycopg2.IntegrityError", "An user cannot have twice the same contact.")
		}
	}
	return s.addContactLocked(UID, vals.PartnerID), nil
}

func (s *Server) unlink(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
	p, rpcErr := decodeCallKW(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(p.Args) != 1 {
		return nil, serverError("TypeError", "unlink_from_partner_id() takes exactly one partner id")
	}
	var partnerID int64
	if err := json.Unmarshal(p.Args[0], &partnerID); err != nil {
		return nil, serverError("ValueError", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.contacts {
		if c.userID == UID && c.partnerID == partnerID {
			delete(s.contacts, id)
		}
	}
	return true, nil
}

func (s *Server) attendeeDetail(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
	p, rpcErr := decodeCallKW(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(p.Args) != 2 {
		return nil, serverError("TypeError", "get_attendee_detail() takes partner ids and a record id")
	}
	var ids []int64
	if err := json.Unmarshal(p.Args[0], &ids); err != nil {
		return nil, serverError("ValueError", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		a, ok := s.attendees[id]
		if !ok {
			a = Attendee{Name: s.partners[id], Status: "needsAction", Color: 0}
		}
		rows = append(rows, []any{id, a.Name, a.Status, a.Color})
	}
	return rows, nil
}

func (s *Server) notify(*http.Request, json.RawMessage) (any, *rpc.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNotify != nil {
		return nil, s.failNotify
	}
	if s.due == nil {
		return []calendar.DueNotification{}, nil
	}
	return s.due, nil
}

func (s *Server) notifyAck(*http.Request, json.RawMessage) (any, *rpc.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks++
	return nil, nil
}

func (s *Server) loadAction(_ *http.Request, params json.RawMessage) (any, *rpc.Error) {
	var p struct {
		ActionID string `json:"action_id"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, serverError("ValueError", err.Error())
	}
	if p.ActionID != calendar.ActionEventNotify {
		return nil, serverError("ValueError", "External ID not found in the system: "+p.ActionID)
	}
	return map[string]any{
		"id":        ActionID,
		"name":      "Meetings",
		"type":      "ir.actions.act_window",
		"res_model": calendar.ModelEvent,
		"view_mode": "form",
		"res_id":    false,
	}, nil
}
