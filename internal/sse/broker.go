// Package sse streams pet events to browsers over Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// heartbeatInterval keeps idle streams open through proxies.
	heartbeatInterval = 15 * time.Second

	// reconnectMS is the retry hint sent to browsers on connect.
	reconnectMS = 3000

	clientBuffer = 64
)

// PetEvent is the payload of every pet.* event.
type PetEvent struct {
	PetID int64 `json:"pet_id"`
	Data  any   `json:"data,omitempty"`
}

// statsKinds are the pet events that change feeding statistics.
var statsKinds = map[string]bool{"fed": true, "deleted": true}

// hub is the state owned by the broker loop.
type hub struct {
	clients   map[chan []byte]struct{}
	seq       uint64
	lastStats map[int64]time.Time
}

// Broker fans pet events out to connected clients.
//
// The loop goroutine owns the hub; every public method hands it a closure
// over ops and never touches the hub directly.
type Broker struct {
	clock    clockwork.Clock
	statsMin time.Duration

	ops     chan func(*hub)
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits stats.updated for a pet at most
// once per statsThrottle. A nil clock means the real wall clock.
func NewBroker(statsThrottle time.Duration, clock clockwork.Clock) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	b := &Broker{
		clock:    clock,
		statsMin: statsThrottle,
		ops:      make(chan func(*hub), 256),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	h := &hub{
		clients:   make(map[chan []byte]struct{}),
		lastStats: make(map[int64]time.Time),
	}
	for {
		select {
		case <-b.stopCh:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do hands op to the loop. It reports false once the broker is closed.
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

// send frames one event and queues it on every client. Clients with a
// full buffer miss the event.
func (h *hub) send(kind string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	h.seq++
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "id: %d\nevent: %s\ndata: %s\n\n", h.seq, kind, payload)
	msg := buf.Bytes()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Close stops the loop and closes every client channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed on Unsubscribe or
// Close.
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
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// PublishPetEvent broadcasts pet.<kind>. Feeds and deletions also produce
// stats.updated for that pet, throttled per pet.
func (b *Broker) PublishPetEvent(kind string, petID int64, data any) {
	b.do(func(h *hub) {
		h.send("pet."+kind, PetEvent{PetID: petID, Data: data})
		if !statsKinds[kind] {
			return
		}
		now := b.clock.Now()
		if last, ok := h.lastStats[petID]; ok && now.Sub(last) < b.statsMin {
			return
		}
		h.lastStats[petID] = now
		h.send("stats.updated", map[string]int64{"pet_id": petID})
		if kind == "deleted" {
			delete(h.lastStats, petID)
		}
	})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
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
	_, _ = w.Write([]byte("retry: " + strconv.Itoa(reconnectMS) + "\n\n"))
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	heartbeat := b.clock.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.Chan():
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
