package service

import (
	"slices"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// JourneyStore maps badge ids to their in-progress journeys.
// Creation is explicit through GetOrCreate; reads never create records.
// Iteration follows creation order so drains and note broadcasts are
// deterministic. It is not safe for concurrent use.
type JourneyStore struct {
	byID  map[string]*domain.Journey
	order []string
}

// NewJourneyStore returns an empty store.
func NewJourneyStore() *JourneyStore {
	return &JourneyStore{byID: make(map[string]*domain.Journey)}
}

// Get returns the open journey for badgeID, if any.
func (s *JourneyStore) Get(badgeID string) (*domain.Journey, bool) {
	j, ok := s.byID[badgeID]
	return j, ok
}

// GetOrCreate returns the open journey for badgeID, creating a blank one in
// session when there is none. created reports whether a record was made.
func (s *JourneyStore) GetOrCreate(badgeID string, session domain.Session) (j *domain.Journey, created bool) {
	if j, ok := s.byID[badgeID]; ok {
		return j, false
	}
	j = domain.NewJourney(badgeID, session)
	s.byID[badgeID] = j
	s.order = append(s.order, badgeID)
	return j, true
}

// Remove deletes the open journey for badgeID and reports whether it existed.
func (s *JourneyStore) Remove(badgeID string) bool {
	if _, ok := s.byID[badgeID]; !ok {
		return false
	}
	delete(s.byID, badgeID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == badgeID })
	return true
}

// IDs returns the badge ids of all open journeys in creation order.
// The slice is a copy and may be kept across Remove calls.
func (s *JourneyStore) IDs() []string {
	return slices.Clone(s.order)
}

// Len returns the number of open journeys.
func (s *JourneyStore) Len() int {
	return len(s.byID)
}
