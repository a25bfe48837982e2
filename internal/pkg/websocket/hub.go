package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
)

const (
	eventCheckIn  = "check_in"
	broadcastSize = 256
)

// Event is the JSON frame pushed to check-in feed subscribers.
type Event struct {
	Type    string         `json:"type"`
	CheckIn models.CheckIn `json:"checkIn"`
}

// Hub fans check-in events out to the clients watching each course.
type Hub struct {
	// Subscribed clients keyed by course ID
	clients map[int64]map[*Client]bool

	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client
	// closed once Run has returned
	done chan struct{}

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		broadcast:  make(chan *Event, broadcastSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. It must
// be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// PublishCheckIn queues a check-in for the course feed. It never blocks
// the redemption path; events are dropped when the queue is full.
func (h *Hub) PublishCheckIn(checkIn models.CheckIn) {
	select {
	case h.broadcast <- &Event{Type: eventCheckIn, CheckIn: checkIn}:
	default:
		h.logger.Warn().Int64("courseID", checkIn.CourseID).Msg("Check-in feed queue full, event dropped")
	}
}

// join hands client to Run. It reports false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave hands client to Run for removal. After the hub has stopped every
// client has already been removed by closeAll.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.courseID]; !ok {
		h.clients[client.courseID] = make(map[*Client]bool)
	}
	h.clients[client.courseID][client] = true

	h.logger.Info().
		Int64("courseID", client.courseID).
		Int64("accountID", client.accountID).
		Msg("Feed client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked drops client and closes its send channel. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.courseID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.courseID)
	}

	h.logger.Info().
		Int64("courseID", client.courseID).
		Int64("accountID", client.accountID).
		Msg("Feed client unregistered")
}

func (h *Hub) broadcastEvent(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal feed event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	courseID := event.CheckIn.CourseID
	for client := range h.clients[courseID] {
		select {
		case client.send <- data:
		default:
			// slow consumer
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the number of feed clients watching courseID.
func (h *Hub) ClientCount(courseID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[courseID])
}
