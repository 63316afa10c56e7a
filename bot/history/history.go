// © 2013 the CatBase Authors under the WTFPL. See AUTHORS for the list of authors.

package history

import (
	"container/ring"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/velour/hookbase/event"
)

var ErrNotFound = errors.New("entry not found")

// History is a ring buffer of the most recent events
type History struct {
	mu sync.Mutex
	r  *ring.Ring
}

// New returns a history of sz size
func New(sz int) *History {
	if sz < 1 {
		sz = 1
	}
	return &History{r: ring.New(sz)}
}

func value(r *ring.Ring) *event.Event {
	ev, _ := r.Value.(*event.Event)
	return ev
}

// Append adds an event to the history, pushing out the oldest one
func (h *History) Append(ev *event.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.r.Value = ev
	h.r = h.r.Next()
}

// Find looks for an entry by id
func (h *History) Find(id uuid.UUID) (*event.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.r
	for i := 0; i < r.Len(); i++ {
		if ev := value(r); ev != nil && ev.ID == id {
			return ev, nil
		}
		r = r.Next()
	}
	return nil, ErrNotFound
}

// Last gets the last known event, or nil
func (h *History) Last() *event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return value(h.r.Prev())
}

// LastInChannel searches backwards for the last event in channel ch
func (h *History) LastInChannel(ch string) (*event.Event, error) {
	found := h.InChannel(ch)
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return found[0], nil
}

// InChannel returns all known events from channel ch, newest first
func (h *History) InChannel(ch string) []*event.Event {
	out := []*event.Event{}
	for _, ev := range h.All() {
		if strings.EqualFold(ev.Chan, ch) {
			out = append(out, ev)
		}
	}
	return out
}

// All returns every known event, newest first
func (h *History) All() []*event.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []*event.Event{}
	r := h.r.Prev()
	for i := 0; i < r.Len(); i++ {
		if ev := value(r); ev != nil {
			out = append(out, ev)
		}
		r = r.Prev()
	}
	return out
}
