package domain

// MergeStats counts the outcome of one EventSet.Merge call.
type MergeStats struct {
	Added      int
	Duplicates int
	MissingID  int
}

// EventSet is a first-seen-wins collection of events keyed by activation ID.
// Iteration follows insertion order. It is not safe for concurrent use.
type EventSet struct {
	byID  map[string]int
	order []DisasterEvent
}

// NewEventSet returns an empty set.
func NewEventSet() *EventSet {
	return &EventSet{byID: make(map[string]int)}
}

// Merge inserts events whose ID is not yet present. Events without an ID are
// dropped. Existing entries are never modified.
func (s *EventSet) Merge(incoming []DisasterEvent) MergeStats {
	var stats MergeStats
	for _, e := range incoming {
		switch {
		case e.ActivationID == "":
			stats.MissingID++
		case s.has(e.ActivationID):
			stats.Duplicates++
		default:
			s.byID[e.ActivationID] = len(s.order)
			s.order = append(s.order, e)
			stats.Added++
		}
	}
	return stats
}

func (s *EventSet) has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Len returns the number of stored events.
func (s *EventSet) Len() int { return len(s.order) }

// Get returns the stored event for id.
func (s *EventSet) Get(id string) (DisasterEvent, bool) {
	i, ok := s.byID[id]
	if !ok {
		return DisasterEvent{}, false
	}
	return s.order[i], true
}

// Events returns a copy of the stored events in insertion order.
func (s *EventSet) Events() []DisasterEvent {
	out := make([]DisasterEvent, len(s.order))
	copy(out, s.order)
	return out
}

// Merge is the functional form of EventSet.Merge: it returns a new map with
// every incoming event whose ID is absent from existing. existing is not
// modified.
func Merge(existing map[string]DisasterEvent, incoming []DisasterEvent) map[string]DisasterEvent {
	out := make(map[string]DisasterEvent, len(existing)+len(incoming))
	for id, e := range existing {
		out[id] = e
	}
	for _, e := range incoming {
		if e.ActivationID == "" {
			continue
		}
		if _, ok := out[e.ActivationID]; ok {
			continue
		}
		out[e.ActivationID] = e
	}
	return out
}
