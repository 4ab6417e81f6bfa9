package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/Domenick1991/servicebooking/internal/realtime"
	"github.com/Domenick1991/servicebooking/internal/service/booking"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Subscriber is the part of the realtime hub the websocket handler needs.
type Subscriber interface {
	Subscribe(topic string, conn realtime.Conn) func()
}

type RealtimeHandler struct {
	bookings booking.BookingUseCase
	hub      Subscriber
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewRealtimeHandler(bookings booking.BookingUseCase, hub Subscriber, allowedOrigins []string, log *zap.Logger) *RealtimeHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &RealtimeHandler{
		bookings: bookings,
		hub:      hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func (h *RealtimeHandler) Register(router *gin.RouterGroup) {
	router.GET("/bookings/:id", h.subscribe)
}

// subscribe streams the booking's events to the caller. Only parties who can read the booking may subscribe.
func (h *RealtimeHandler) subscribe(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	b, err := h.bookings.GetBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	conn := &wsConn{conn: ws}
	defer conn.Close()

	unsubscribe := h.hub.Subscribe(realtime.BookingTopic(b.ID), conn)
	defer unsubscribe()
	h.log.Debug("realtime subscriber joined", zap.String("booking_id", b.ID), zap.String("actor_id", actor.ID))

	done := make(chan struct{})
	go conn.keepAlive(done)
	defer close(done)

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	// Clients only listen; reading drives pong handling and detects disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// wsConn serializes writes to a gorilla connection, which supports one concurrent writer.
type wsConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (w *wsConn) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}

func (w *wsConn) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.mu.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
