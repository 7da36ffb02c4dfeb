package ws

import (
	"context"
	"errors"
	"sync"

	"roomrelay/internal/rooms"

	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("hub stopped")

type hubEventKind int

const (
	hubConnect hubEventKind = iota
	hubLogin
	hubMessage
	hubDisconnect
	hubSnapshot
)

type hubEvent struct {
	kind    hubEventKind
	id      rooms.ClientID
	conn    rooms.Conn
	name    string
	payload []byte
	reply   chan rooms.Stats
}

// Hub serialises every room operation onto the goroutine running Run, so a
// split or a dissolve never interleaves with another client's event.
type Hub struct {
	handler *rooms.Handler
	events  chan hubEvent

	mu       sync.RWMutex
	stopped  bool
	inflight sync.WaitGroup
	stopping chan struct{}
	done     chan struct{}
}

func NewHub(handler *rooms.Handler, queue int) *Hub {
	return &Hub{
		handler:  handler,
		events:   make(chan hubEvent, queue),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.stop()
			h.handler.Shutdown()
			zap.L().Info("ws.hub_stopped")
			return
		case e := <-h.events:
			h.apply(e)
		}
	}
}

// stop refuses new events and rejects whatever is still queued.
func (h *Hub) stop() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	close(h.stopping)

	idle := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(idle)
	}()
	for {
		select {
		case e := <-h.events:
			h.reject(e)
		case <-idle:
			for {
				select {
				case e := <-h.events:
					h.reject(e)
				default:
					return
				}
			}
		}
	}
}

func (h *Hub) apply(e hubEvent) {
	switch e.kind {
	case hubConnect:
		h.handler.Connect(e.id, e.conn)
	case hubLogin:
		h.handler.Login(e.id, e.name)
	case hubMessage:
		h.handler.Message(e.id, e.payload)
	case hubDisconnect:
		h.handler.Disconnect(e.id)
	case hubSnapshot:
		_ = h.handler.Verify()
		e.reply <- h.handler.Stats()
	}
}

// reject releases an event that was queued but will never be applied.
func (h *Hub) reject(e hubEvent) {
	if e.kind == hubConnect && e.conn != nil {
		e.conn.Close()
	}
	zap.L().Debug("ws.hub_rejected", zap.String("client", string(e.id)), zap.Int("kind", int(e.kind)))
}

// send queues e unless the hub is stopping or ctx ends first. An event it
// accepts is either applied or rejected by Run, never left in the queue.
func (h *Hub) send(ctx context.Context, e hubEvent) error {
	h.mu.RLock()
	if h.stopped {
		h.mu.RUnlock()
		return ErrHubStopped
	}
	h.inflight.Add(1)
	h.mu.RUnlock()
	defer h.inflight.Done()

	select {
	case h.events <- e:
		return nil
	case <-h.stopping:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) submit(e hubEvent) bool {
	return h.send(context.Background(), e) == nil
}

func (h *Hub) Connect(id rooms.ClientID, conn rooms.Conn) bool {
	return h.submit(hubEvent{kind: hubConnect, id: id, conn: conn})
}

func (h *Hub) Login(id rooms.ClientID, name string) bool {
	return h.submit(hubEvent{kind: hubLogin, id: id, name: name})
}

func (h *Hub) Message(id rooms.ClientID, frame []byte) bool {
	return h.submit(hubEvent{kind: hubMessage, id: id, payload: frame})
}

func (h *Hub) Disconnect(id rooms.ClientID) bool {
	return h.submit(hubEvent{kind: hubDisconnect, id: id})
}

// Snapshot returns the room statistics as of every event queued before it.
func (h *Hub) Snapshot(ctx context.Context) (rooms.Stats, error) {
	reply := make(chan rooms.Stats, 1)
	if err := h.send(ctx, hubEvent{kind: hubSnapshot, reply: reply}); err != nil {
		return rooms.Stats{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-h.stopping:
		return rooms.Stats{}, ErrHubStopped
	case <-ctx.Done():
		return rooms.Stats{}, ctx.Err()
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }
