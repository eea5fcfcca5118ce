// Package sse implements a Server-Sent Events broker pushing vault changes
// to timeline and parent-picker clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync/atomic"
	"time"
)

// Event types sent on the stream.
const (
	EventNoteCreated     = "note.created"
	EventNoteUpdated     = "note.updated"
	EventNoteDeleted     = "note.deleted"
	EventTimelineUpdated = "timeline.updated"
	EventParentLinked    = "parent.linked"
)

var noteEventTypes = map[string]string{
	"created": EventNoteCreated,
	"updated": EventNoteUpdated,
	"deleted": EventNoteDeleted,
}

const clientBuffer = 64

// Event is one message on the stream. Data is sent as JSON.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NoteChange describes a note touched on disk. ModTime is nil for deletions.
type NoteChange struct {
	Path    string     `json:"path"`
	ModTime *time.Time `json:"mtime,omitempty"`
}

// TimelineUpdate lists the notes changed since the previous timeline.updated,
// most recently modified first. Deletions come last.
type TimelineUpdate struct {
	Changed []NoteChange `json:"changed"`
}

// ParentLink reports that child was recorded under parent.
type ParentLink struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
}

// hub is the state owned by the broker loop.
type hub struct {
	clients  map[chan []byte]struct{}
	throttle time.Duration

	// Changes waiting for the next timeline.updated.
	pending   map[string]NoteChange
	lastFlush time.Time
	timer     *time.Timer
	due       <-chan time.Time
}

func (h *hub) send(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	msg := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, payload))
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Client buffer full; skip.
		}
	}
}

// queue records a change and sends timeline.updated now if the throttle
// window has passed, otherwise once it does.
func (h *hub) queue(c NoteChange) {
	h.pending[c.Path] = c
	if h.due != nil {
		return
	}
	wait := h.throttle - time.Since(h.lastFlush)
	if wait <= 0 {
		h.flush()
		return
	}
	h.timer = time.NewTimer(wait)
	h.due = h.timer.C
}

func (h *hub) flush() {
	h.timer, h.due = nil, nil
	if len(h.pending) == 0 {
		return
	}
	changed := make([]NoteChange, 0, len(h.pending))
	for _, c := range h.pending {
		changed = append(changed, c)
	}
	clear(h.pending)
	sort.Slice(changed, func(i, j int) bool {
		a, b := changed[i], changed[j]
		if (a.ModTime == nil) != (b.ModTime == nil) {
			return b.ModTime == nil
		}
		if a.ModTime != nil && !a.ModTime.Equal(*b.ModTime) {
			return a.ModTime.After(*b.ModTime)
		}
		return a.Path < b.Path
	})
	h.lastFlush = time.Now()
	h.send(Event{Type: EventTimelineUpdated, Data: TimelineUpdate{Changed: changed}})
}

// Broker fans vault events out to SSE clients.
//
// One goroutine owns the hub; every public method hands it a closure over
// ops, so the hub needs no locking.
type Broker struct {
	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. Note changes are batched into one
// timeline.updated per throttle interval; none is lost, a burst only
// arrives later.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}
	b := &Broker{
		ops:     make(chan func(*hub)),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go b.run(&hub{
		clients:  make(map[chan []byte]struct{}),
		throttle: throttle,
		pending:  make(map[string]NoteChange),
	})
	return b
}

func (b *Broker) run(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.stopCh:
			if h.timer != nil {
				h.timer.Stop()
			}
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		case <-h.due:
			h.flush()
		}
	}
}

// do runs op on the broker goroutine. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the broker and closes every client channel. Pending timeline
// changes are dropped.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.do(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.do(func(h *hub) { n <- len(h.clients) }) {
		return 0
	}
	return <-n
}

// Publish sends event to every client as is.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.send(event) })
}

// NoteChanged reports a note created, updated or deleted on disk. Known
// kinds are forwarded immediately; every change also feeds the next
// timeline.updated batch.
func (b *Broker) NoteChanged(kind, path string, mtime time.Time) {
	c := NoteChange{Path: path}
	if !mtime.IsZero() {
		c.ModTime = &mtime
	}
	b.do(func(h *hub) {
		if typ, ok := noteEventTypes[kind]; ok {
			h.send(Event{Type: typ, Data: c})
		}
		h.queue(c)
	})
}

// ParentLinked reports that child was recorded under parent.
func (b *Broker) ParentLinked(parent, child string) {
	b.Publish(Event{Type: EventParentLinked, Data: ParentLink{Parent: parent, Child: child}})
}

// ServeHTTP streams events to one client until it disconnects (GET /events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
