package runner

import (
	"sort"
	"sync"

	"github.com/saleskit-io/meetbot/internal/meeting"
)

// Roster tracks who is currently in the meeting.
type Roster struct {
	mu   sync.RWMutex
	byID map[string]meeting.Participant
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{byID: make(map[string]meeting.Participant)}
}

// Add records a participant, replacing any previous entry for the
// same ID.
func (r *Roster) Add(p meeting.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
}

// Remove drops a participant. It reports whether the ID was known.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	return true
}

// Count reports how many participants are present.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// List returns the participants ordered by name.
func (r *Roster) List() []meeting.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]meeting.Participant, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
