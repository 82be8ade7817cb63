package incidents

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrIncidentNotFound     = errors.New("incident not found")
	ErrResponderNotFound    = errors.New("responder not found")
	ErrResponderUnavailable = errors.New("responder is not available")
	ErrNoPendingIncident    = errors.New("no pending incident for this responder")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrInvalidInput         = errors.New("invalid input")
)

// Category is the agency an incident or responder belongs to.
type Category string

const (
	CategoryFire    Category = "fire"
	CategoryMedical Category = "medical"
	CategoryPolice  Category = "police"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFire, CategoryMedical, CategoryPolice:
		return true
	}
	return false
}

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority accepts the lower-case names used on the wire.
func ParsePriority(s string) (Priority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusAssigned Status = "assigned"
	StatusResolved Status = "resolved"
)

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

type Incident struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    Category  `json:"category"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	Location    Location  `json:"location"`
	ReportedBy  uint      `json:"reportedBy,omitempty"`
	ReportedAt  time.Time `json:"reportedAt"`
	AssignedTo  string    `json:"assignedTo,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
}

type Responder struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Agency    Category `json:"agency"`
	Available bool     `json:"available"`
	Location  Location `json:"location"`
	// UserID links the responder to an account for push delivery.
	UserID uint `json:"userId,omitempty"`
	// IncidentID is the incident the responder is currently assigned to.
	IncidentID string `json:"incidentId,omitempty"`
}

type EventType string

const (
	EventIncidentReported EventType = "incident_reported"
	EventIncidentAssigned EventType = "incident_assigned"
	EventIncidentUpdated  EventType = "incident_updated"
	EventResponderUpdated EventType = "responder_updated"
)

// ResponseSpeedKmh is the average speed assumed for assignment ETAs.
const ResponseSpeedKmh = 40

// Event describes one mutation of the board. Seq increases by one per event
// so consumers can drop anything older than what they already applied.
type Event struct {
	Seq       uint64     `json:"seq"`
	Type      EventType  `json:"type"`
	Incident  *Incident  `json:"incident,omitempty"`
	Responder *Responder `json:"responder,omitempty"`
	// ETAMinutes is set on assignments, from the responder's last position.
	ETAMinutes int `json:"etaMinutes,omitempty"`
}
