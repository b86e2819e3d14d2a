package testutil

import (
	"sync"

	"github.com/udisondev/attrsys/internal/event"
	"github.com/udisondev/attrsys/internal/tag"
)

// Recorder: event.Bus, запоминающий все опубликованные события.
// Потокобезопасен.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

// NewRecorder создаёт пустой Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish реализует event.Bus.
func (r *Recorder) Publish(e event.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events возвращает копию всех событий в порядке публикации.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Len возвращает количество событий.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset очищает накопленные события.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.mu.Unlock()
}

// WithTag возвращает события с указанным тегом.
func (r *Recorder) WithTag(t tag.Tag) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Tag.MatchesExact(t) {
			out = append(out, e)
		}
	}
	return out
}

// Tags возвращает теги событий в порядке публикации.
func (r *Recorder) Tags() []tag.Tag {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tag.Tag, len(r.events))
	for i, e := range r.events {
		out[i] = e.Tag
	}
	return out
}

// Last возвращает последнее событие.
func (r *Recorder) Last() (event.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return event.Event{}, false
	}
	return r.events[len(r.events)-1], true
}
