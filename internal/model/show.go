package model

import (
	"time"

	"github.com/google/uuid"
)

// Show is a single performance of an event. Catalog data; read-only here.
type Show struct {
	ID       int       `json:"id" db:"id"`
	ShowID   uuid.UUID `json:"show_id" db:"show_id"`
	EventID  int       `json:"event_id" db:"event_id"`
	Name     string    `json:"name" db:"name"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
}

// HasStarted reports whether sales must be rejected because the show began.
func (s *Show) HasStarted(now time.Time) bool {
	return !s.StartsAt.After(now)
}

// ShowDetail is the public show page: the show plus each ticket type with its
// live remaining count.
type ShowDetail struct {
	Show        *Show                     `json:"show"`
	TicketTypes []*TicketTypeAvailability `json:"ticket_types"`
}

type TicketTypeAvailability struct {
	*TicketType
	Remaining int `json:"remaining"`
}
