package domain

import (
	"sort"

	"github.com/bwmarrin/snowflake"
)

const DefaultSelectionMax = 50

// Selection is the client-side set of tickets a buyer intends to reserve.
type Selection struct {
	max   int
	order []snowflake.ID
	items map[snowflake.ID]Ticket
}

func NewSelection(max int) *Selection {
	if max <= 0 {
		max = DefaultSelectionMax
	}
	return &Selection{
		max:   max,
		items: make(map[snowflake.ID]Ticket),
	}
}

// Toggle deselects a selected ticket or selects an available one.
func (s *Selection) Toggle(ticket Ticket) error {
	if _, ok := s.items[ticket.ID]; ok {
		s.remove(ticket.ID)
		return nil
	}
	if ticket.Status != TicketStatusAvailable {
		return ErrTicketNotAvailable
	}
	if len(s.items) >= s.max {
		return ErrSelectionLimitReached
	}
	s.items[ticket.ID] = ticket
	s.order = append(s.order, ticket.ID)
	return nil
}

// Add selects tickets until the limit is reached and returns how many were added.
func (s *Selection) Add(tickets ...Ticket) int {
	added := 0
	for _, ticket := range tickets {
		if _, ok := s.items[ticket.ID]; ok {
			continue
		}
		if err := s.Toggle(ticket); err != nil {
			continue
		}
		added++
	}
	return added
}

func (s *Selection) Contains(id snowflake.ID) bool {
	_, ok := s.items[id]
	return ok
}

func (s *Selection) Len() int { return len(s.order) }

func (s *Selection) Max() int { return s.max }

func (s *Selection) Clear() {
	s.order = nil
	s.items = make(map[snowflake.ID]Ticket)
}

// IDs returns ticket ids in selection order.
func (s *Selection) IDs() []snowflake.ID {
	return append([]snowflake.ID(nil), s.order...)
}

// Numbers returns the selected ticket numbers in ascending order.
func (s *Selection) Numbers() []int {
	numbers := make([]int, 0, len(s.order))
	for _, id := range s.order {
		numbers = append(numbers, s.items[id].Number)
	}
	sort.Ints(numbers)
	return numbers
}

func (s *Selection) Tickets() []Ticket {
	out := make([]Ticket, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Selection) remove(id snowflake.ID) {
	delete(s.items, id)
	for i, current := range s.order {
		if current == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
