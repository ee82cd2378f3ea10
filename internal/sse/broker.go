// Package sse streams notebook changes to connected clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/starford/onemd/internal/watch"
)

// TreeChanged follows structural changes, at most once per throttle
// interval, so clients know to reload their notebook and note lists.
const TreeChanged = "tree.changed"

const (
	clientBuffer = 64
	keepAlive    = 25 * time.Second
)

// Event is a single SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Type, payload), nil
}

// hub is owned by the broker loop and never touched from elsewhere.
type hub struct {
	clients  map[chan []byte]struct{}
	treeMin  time.Duration
	lastTree time.Time
}

func (h *hub) send(event Event) {
	raw, err := encode(event)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- raw:
		default:
			// slow client, message dropped
		}
	}
}

func (h *hub) change(c watch.Event) {
	h.send(Event{Type: string(c.Kind), Data: c})
	if !c.Kind.Structural() {
		return
	}
	if now := time.Now(); now.Sub(h.lastTree) >= h.treeMin {
		h.lastTree = now
		h.send(Event{Type: TreeChanged, Data: struct{}{}})
	}
}

func (h *hub) drop(ch chan []byte) {
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
}

// Broker fans events out to SSE clients. Every operation is a closure run
// on the loop goroutine; ops is unbuffered, so nothing is accepted once the
// loop has seen Close.
type Broker struct {
	ops     chan func(*hub)
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewBroker starts a broker. treeThrottle <= 0 uses one second.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = time.Second
	}
	b := &Broker{
		ops:     make(chan func(*hub)),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go b.loop(&hub{
		clients: make(map[chan []byte]struct{}),
		treeMin: treeThrottle,
	})
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.done:
			for ch := range h.clients {
				h.drop(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do hands op to the loop and reports whether it was accepted.
func (b *Broker) do(op func(*hub)) bool {
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the loop and closes every client channel. Safe to call twice.
func (b *Broker) Close() {
	b.once.Do(func() { close(b.done) })
	<-b.stopped
}

// Subscribe registers a client. After Close the returned channel is
// already closed.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if !b.do(func(h *hub) { h.clients[ch] = struct{}{} }) {
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) { h.drop(ch) })
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.do(func(h *hub) { n <- len(h.clients) }) {
		return 0
	}
	return <-n
}

// Publish broadcasts an arbitrary event.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.send(event) })
}

// PublishChange broadcasts a watcher event, plus a throttled tree.changed
// when it is structural. It has the watch.Callback signature.
func (b *Broker) PublishChange(change watch.Event) {
	b.do(func(h *hub) { h.change(change) })
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes. Idle streams get a comment line every keepAlive.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
		case <-ping.C:
			_, _ = io.WriteString(w, ": keepalive\n\n")
		}
		flusher.Flush()
	}
}
