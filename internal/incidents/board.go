// Package incidents holds the shared incident board every client screen reads.
// A single Board is created at startup and injected into its consumers; callers
// only ever see copies of its state.
package incidents

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chachabrian/rescuelink-backend/pkg/utils"
	"github.com/google/uuid"
)

type Board struct {
	mu          sync.RWMutex
	incidents   map[string]*Incident
	responders  map[string]*Responder
	subscribers []func(Event)
	seq         uint64
	now         func() time.Time
	newID       func() string

	// emitMu is taken before mu is released so subscribers see events in
	// commit order.
	emitMu sync.Mutex
}

type BoardOption func(*Board)

func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

func WithIDGenerator(gen func() string) BoardOption {
	return func(b *Board) { b.newID = gen }
}

func NewBoard(opts ...BoardOption) *Board {
	b := &Board{
		incidents:  make(map[string]*Incident),
		responders: make(map[string]*Responder),
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscribe registers fn to receive every event after the mutation commits.
// Events arrive one at a time in Seq order. fn runs on the mutating goroutine
// and must not call back into the Board synchronously.
func (b *Board) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// NewIncident is the input for Report.
type NewIncident struct {
	Title       string
	Description string
	Category    Category
	Priority    Priority
	Location    Location
	ReportedBy  uint
}

func (n NewIncident) validate() error {
	switch {
	case strings.TrimSpace(n.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !n.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, n.Category)
	case !n.Priority.Valid():
		return fmt.Errorf("%w: unknown priority", ErrInvalidInput)
	case !n.Location.Valid():
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}
	return nil
}

// Report adds a pending incident to the board.
func (b *Board) Report(n NewIncident) (Incident, error) {
	if err := n.validate(); err != nil {
		return Incident{}, err
	}

	b.mu.Lock()
	inc := &Incident{
		ID:          b.newID(),
		Title:       strings.TrimSpace(n.Title),
		Description: n.Description,
		Category:    n.Category,
		Priority:    n.Priority,
		Status:      StatusPending,
		Location:    n.Location,
		ReportedBy:  n.ReportedBy,
		ReportedAt:  b.now().UTC(),
	}
	b.incidents[inc.ID] = inc
	out := *inc
	b.publishLocked(Event{Type: EventIncidentReported, Incident: &out})
	return out, nil
}

// Filter narrows Snapshot. Zero fields match everything.
type Filter struct {
	Status   Status
	Category Category
}

// Snapshot returns copies ordered by priority (highest first), then by age.
func (b *Board) Snapshot(f Filter) []Incident {
	b.mu.RLock()
	out := make([]Incident, 0, len(b.incidents))
	for _, inc := range b.incidents {
		if f.Status != "" && inc.Status != f.Status {
			continue
		}
		if f.Category != "" && inc.Category != f.Category {
			continue
		}
		out = append(out, *inc)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return before(&out[i], &out[j]) })
	return out
}

func (b *Board) Get(id string) (Incident, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	inc, ok := b.incidents[id]
	if !ok {
		return Incident{}, ErrIncidentNotFound
	}
	return *inc, nil
}

// SetPhoto records where the incident's photo was stored.
func (b *Board) SetPhoto(id, url string) (Incident, error) {
	b.mu.Lock()
	inc, ok := b.incidents[id]
	if !ok {
		b.mu.Unlock()
		return Incident{}, ErrIncidentNotFound
	}
	inc.PhotoURL = url
	out := *inc
	b.publishLocked(Event{Type: EventIncidentUpdated, Incident: &out})
	return out, nil
}

// UpdateStatus moves an incident along pending -> assigned -> resolved.
// Setting an assigned incident back to pending, or resolving it, frees its
// responder. Assignment itself goes through Assign or AutoAssign.
func (b *Board) UpdateStatus(id string, status Status) (Incident, error) {
	b.mu.Lock()
	inc, ok := b.incidents[id]
	if !ok {
		b.mu.Unlock()
		return Incident{}, ErrIncidentNotFound
	}

	if inc.Status == StatusResolved || status == StatusAssigned || status == inc.Status {
		b.mu.Unlock()
		return Incident{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inc.Status, status)
	}
	if status != StatusPending && status != StatusResolved {
		b.mu.Unlock()
		return Incident{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	var freed *Responder
	if inc.AssignedTo != "" {
		if r, ok := b.responders[inc.AssignedTo]; ok && r.IncidentID == inc.ID {
			r.Available = true
			r.IncidentID = ""
			cp := *r
			freed = &cp
		}
		inc.AssignedTo = ""
	}
	inc.Status = status
	out := *inc

	events := []Event{{Type: EventIncidentUpdated, Incident: &out}}
	if freed != nil {
		events = append(events, Event{Type: EventResponderUpdated, Responder: freed})
	}
	b.publishLocked(events...)
	return out, nil
}

// Assign dispatches a specific responder to a pending incident.
func (b *Board) Assign(incidentID, responderID string) (Incident, error) {
	b.mu.Lock()
	inc, ok := b.incidents[incidentID]
	if !ok {
		b.mu.Unlock()
		return Incident{}, ErrIncidentNotFound
	}
	r, ok := b.responders[responderID]
	if !ok {
		b.mu.Unlock()
		return Incident{}, ErrResponderNotFound
	}
	if !r.Available {
		b.mu.Unlock()
		return Incident{}, ErrResponderUnavailable
	}
	if inc.Status != StatusPending {
		b.mu.Unlock()
		return Incident{}, fmt.Errorf("%w: incident is %s", ErrInvalidTransition, inc.Status)
	}

	return b.assignLocked(inc, r, distance(r, inc))
}

// AutoAssign picks the most urgent pending incident in the responder's agency:
// highest priority, then oldest report, then nearest to the responder.
func (b *Board) AutoAssign(responderID string) (Incident, error) {
	b.mu.Lock()
	r, ok := b.responders[responderID]
	if !ok {
		b.mu.Unlock()
		return Incident{}, ErrResponderNotFound
	}
	if !r.Available {
		b.mu.Unlock()
		return Incident{}, ErrResponderUnavailable
	}

	var best *Incident
	var bestDist float64
	for _, inc := range b.incidents {
		if inc.Status != StatusPending || inc.Category != r.Agency {
			continue
		}
		dist := distance(r, inc)
		if best == nil || better(inc, dist, best, bestDist) {
			best, bestDist = inc, dist
		}
	}
	if best == nil {
		b.mu.Unlock()
		return Incident{}, ErrNoPendingIncident
	}

	return b.assignLocked(best, r, bestDist)
}

// assignLocked must be called with b.mu held; it releases it.
func (b *Board) assignLocked(inc *Incident, r *Responder, distKm float64) (Incident, error) {
	inc.Status = StatusAssigned
	inc.AssignedTo = r.ID
	r.Available = false
	r.IncidentID = inc.ID

	out := *inc
	resp := *r
	b.publishLocked(Event{
		Type:       EventIncidentAssigned,
		Incident:   &out,
		Responder:  &resp,
		ETAMinutes: utils.EstimateETA(distKm, ResponseSpeedKmh),
	})
	return out, nil
}

func distance(r *Responder, inc *Incident) float64 {
	return utils.HaversineDistance(r.Location.Lat, r.Location.Lng, inc.Location.Lat, inc.Location.Lng)
}

// RegisterResponder adds a responder, available by default.
func (b *Board) RegisterResponder(r Responder) (Responder, error) {
	if strings.TrimSpace(r.Name) == "" {
		return Responder{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !r.Agency.Valid() {
		return Responder{}, fmt.Errorf("%w: unknown agency %q", ErrInvalidInput, r.Agency)
	}
	if !r.Location.Valid() {
		return Responder{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}

	b.mu.Lock()
	if r.ID == "" {
		r.ID = b.newID()
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Available = true
	r.IncidentID = ""
	stored := r
	b.responders[r.ID] = &stored
	b.publishLocked(Event{Type: EventResponderUpdated, Responder: &r})
	return r, nil
}

// SetAvailability toggles a responder and optionally updates their position.
// A responder still working an incident cannot be made available; resolving
// or reopening the incident frees them.
func (b *Board) SetAvailability(id string, available bool, loc *Location) (Responder, error) {
	if loc != nil && !loc.Valid() {
		return Responder{}, fmt.Errorf("%w: coordinates out of range", ErrInvalidInput)
	}

	b.mu.Lock()
	r, ok := b.responders[id]
	if !ok {
		b.mu.Unlock()
		return Responder{}, ErrResponderNotFound
	}
	if available && r.IncidentID != "" {
		b.mu.Unlock()
		return Responder{}, fmt.Errorf("%w: assigned to incident %s", ErrResponderUnavailable, r.IncidentID)
	}
	r.Available = available
	if loc != nil {
		r.Location = *loc
	}
	out := *r
	b.publishLocked(Event{Type: EventResponderUpdated, Responder: &out})
	return out, nil
}

func (b *Board) Responder(id string) (Responder, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.responders[id]
	if !ok {
		return Responder{}, ErrResponderNotFound
	}
	return *r, nil
}

// Responders returns copies sorted by name.
func (b *Board) Responders() []Responder {
	b.mu.RLock()
	out := make([]Responder, 0, len(b.responders))
	for _, r := range b.responders {
		out = append(out, *r)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func before(a, b *Incident) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ReportedAt.Equal(b.ReportedAt) {
		return a.ReportedAt.Before(b.ReportedAt)
	}
	return a.ID < b.ID
}

func better(a *Incident, distA float64, b *Incident, distB float64) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.ReportedAt.Equal(b.ReportedAt) {
		return a.ReportedAt.Before(b.ReportedAt)
	}
	if distA != distB {
		return distA < distB
	}
	return a.ID < b.ID
}

// publishLocked stamps events with the next sequence numbers, releases b.mu
// and delivers them. It must be called with b.mu held.
func (b *Board) publishLocked(events ...Event) {
	for i := range events {
		b.seq++
		events[i].Seq = b.seq
	}
	subs := b.subscribers

	b.emitMu.Lock()
	defer b.emitMu.Unlock()
	b.mu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}
