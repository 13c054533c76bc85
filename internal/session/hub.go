package session

import (
	"log/slog"
	"sync"
)

// Hub maps each identity to its set of live connections. It is owned by the
// process and passed by handle to every component that pushes events; there
// is no ambient global registry.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]*group
	owners map[Conn]string
	logger *slog.Logger
}

// group holds one identity's connections. Its mutex serializes delivery so
// sequential DeliverToIdentity calls reach every connection in call order,
// even with concurrent producers.
type group struct {
	mu    sync.Mutex
	conns map[Conn]struct{}
}

// NewHub creates an empty session hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		groups: make(map[string]*group),
		owners: make(map[Conn]string),
		logger: log.With(slog.String("service", "session")),
	}
}

// Enroll adds a connection under the given identity. Enrolling the same
// connection twice is a no-op; a connection stays bound to its first identity
// for its whole lifetime.
func (h *Hub) Enroll(userID string, conn Conn) {
	if conn == nil || userID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, bound := h.owners[conn]; bound {
		return
	}
	g := h.groups[userID]
	if g == nil {
		g = &group{conns: make(map[Conn]struct{})}
		h.groups[userID] = g
	}
	g.mu.Lock()
	g.conns[conn] = struct{}{}
	g.mu.Unlock()
	h.owners[conn] = userID

	h.logger.Debug("connection enrolled", slog.String("user_id", userID), slog.Int("live", len(g.conns)))
}

// Remove drops a connection from its identity's set. When the set becomes
// empty the identity's channel is reclaimed.
func (h *Hub) Remove(conn Conn) {
	if conn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	userID, ok := h.owners[conn]
	if !ok {
		return
	}
	delete(h.owners, conn)
	g := h.groups[userID]
	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.conns, conn)
	empty := len(g.conns) == 0
	g.mu.Unlock()
	if empty {
		delete(h.groups, userID)
	}

	h.logger.Debug("connection removed", slog.String("user_id", userID))
}

// DeliverToIdentity pushes payload to every live connection of the identity
// and returns the number of successful sends. Zero live connections means the
// payload is dropped; there is no store-and-forward here.
func (h *Hub) DeliverToIdentity(userID string, payload []byte) int {
	h.mu.RLock()
	g := h.groups[userID]
	h.mu.RUnlock()
	if g == nil {
		return 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	delivered := 0
	for conn := range g.conns {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// LiveConnections reports how many connections the identity currently has.
func (h *Hub) LiveConnections(userID string) int {
	h.mu.RLock()
	g := h.groups[userID]
	h.mu.RUnlock()
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}
