package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"lovealarm/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	alarmBuffer = 16
)

// AlarmHandler streams love alarms to connected users over WebSocket.
type AlarmHandler struct {
	nc       *nats.Conn
	upgrader websocket.Upgrader
}

// NewAlarmHandler creates a new AlarmHandler. nc may be nil, in which case
// the stream answers 503. Browser connections are accepted only from
// allowedOrigins; "*" allows any origin.
func NewAlarmHandler(nc *nats.Conn, allowedOrigins []string) *AlarmHandler {
	return &AlarmHandler{
		nc: nc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and those whose origin is listed.
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range allowedOrigins {
			if allowed == "*" || strings.EqualFold(allowed, origin) {
				return true
			}
		}
		return false
	}
}

// Stream handles GET /v1/users/:id/alarms
func (h *AlarmHandler) Stream(c *gin.Context) {
	if h.nc == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "alarm stream unavailable"})
		return
	}

	userID := c.Param("id")
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading alarm stream for %s: %v", userID, err)
		return
	}
	defer conn.Close()

	alarms := make(chan *nats.Msg, alarmBuffer)
	sub, err := h.nc.ChanSubscribe(service.AlarmSubject(userID), alarms)
	if err != nil {
		log.Printf("Error subscribing to alarms for %s: %v", userID, err)
		return
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing alarms for %s: %v", userID, err)
		}
	}()

	closed := make(chan struct{})
	go readPump(conn, closed)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case msg := <-alarms:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg.Data); err != nil {
				log.Printf("Error writing alarm to %s: %v", userID, err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and closes done when the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Alarm stream closed unexpectedly: %v", err)
			}
			return
		}
	}
}
