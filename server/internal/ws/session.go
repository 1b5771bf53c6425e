package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	outBuffer  = 16
)

// session is one connected subscriber.
type session struct {
	conn   *websocket.Conn
	out    chan []byte
	filter map[string]bool // nil means every route
}

func newSession(conn *websocket.Conn, filter map[string]bool) *session {
	return &session{conn: conn, out: make(chan []byte, outBuffer), filter: filter}
}

// offer queues data without blocking and reports whether it fit. A nil
// payload is discarded and counts as delivered.
func (s *session) offer(data []byte) bool {
	if data == nil {
		return true
	}
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}

// writeLoop sends queued messages and keepalive pings. It exits and closes
// the connection when out is closed or a write fails.
func (s *session) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		var err error
		select {
		case data, ok := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			err = s.conn.WriteMessage(websocket.TextMessage, data)
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = s.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// readLoop discards client frames so pongs and close frames are processed.
// It returns once the connection fails or the peer goes quiet for pongWait.
func (s *session) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
