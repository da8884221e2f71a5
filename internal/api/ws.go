package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/fastwise/tutr/internal/progress"
)

// subscriber buffer size; a subscriber that falls this far behind starts
// dropping events rather than blocking the tracker.
const subscriberBuffer = 16

// Hub fans progress events out to websocket subscribers. It implements
// progress.EventLogger so it can sit directly behind the tracker, typically
// composed with a persistent logger via progress.TeeEventLogger.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan progress.Event]struct{}
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan progress.Event]struct{}),
	}
}

// LogEvent broadcasts the event to the student's subscribers.
func (h *Hub) LogEvent(event progress.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.StudentID] {
		select {
		case ch <- event:
		default:
			// Slow subscriber, drop the event.
		}
	}
	return nil
}

// Subscribe registers for a student's events. The returned cancel function
// must be called to release the subscription.
func (h *Hub) Subscribe(studentID string) (<-chan progress.Event, func()) {
	ch := make(chan progress.Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[studentID] == nil {
		h.subs[studentID] = make(map[chan progress.Event]struct{})
	}
	h.subs[studentID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[studentID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, studentID)
			}
		}
	}
	return ch, cancel
}

// handleEvents streams a student's progress events over a websocket until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentID")

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "student_id", studentID, "error", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := s.hub.Subscribe(studentID)
	defer cancel()

	slog.Debug("event stream opened", "student_id", studentID)
	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event := <-events:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				slog.Debug("event stream closed", "student_id", studentID, "error", err)
				return
			}
		}
	}
}
