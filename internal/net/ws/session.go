package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"heist/server/internal/net/proto"
	"heist/server/internal/telemetry"
)

// Outbox receives the messages addressed to one player. Send never blocks;
// it reports false once the outbox is closed or overflowing.
type Outbox interface {
	Send(msg proto.ServerMessage) bool
	Close(reason string)
}

// session owns one websocket connection. The writer goroutine is the only
// goroutine that writes to conn; the handler goroutine is the only reader.
type session struct {
	conn     *websocket.Conn
	codec    proto.Codec
	cfg      HandlerConfig
	logger   telemetry.Logger
	playerID string

	send      chan proto.ServerMessage
	done      chan struct{}
	closeOnce sync.Once
	reasonMu  sync.Mutex
	reason    string
}

func newSession(conn *websocket.Conn, codec proto.Codec, playerID string, cfg HandlerConfig, logger telemetry.Logger) *session {
	return &session{
		conn:     conn,
		codec:    codec,
		cfg:      cfg,
		logger:   logger,
		playerID: playerID,
		send:     make(chan proto.ServerMessage, cfg.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (s *session) Send(msg proto.ServerMessage) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		s.Close("slow consumer")
		return false
	}
}

// Close asks the writer to flush queued messages and close the connection.
func (s *session) Close(reason string) {
	s.closeOnce.Do(func() {
		s.reasonMu.Lock()
		s.reason = reason
		s.reasonMu.Unlock()
		close(s.done)
	})
}

func (s *session) closeReason() string {
	s.reasonMu.Lock()
	defer s.reasonMu.Unlock()
	return s.reason
}

func (s *session) frameType() int {
	if s.codec.Binary() {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func (s *session) write(msg proto.ServerMessage) error {
	data, err := s.codec.Encode(msg)
	if err != nil {
		s.logger.Printf("failed to encode %s for %s: %v", msg.Type, s.playerID, err)
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	return s.conn.WriteMessage(s.frameType(), data)
}

// writeLoop drains the outbox and keeps the connection alive with pings.
func (s *session) writeLoop() {
	ping := time.NewTicker(s.cfg.PingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				s.Close("write failed")
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(s.cfg.WriteWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.Close("ping failed")
				return
			}
		case <-s.done:
			s.flush()
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, s.closeReason())
			s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(s.cfg.WriteWait))
			return
		}
	}
}

// flush writes whatever is still queued so terminal messages reach the client
// before the close frame.
func (s *session) flush() {
	for {
		select {
		case msg := <-s.send:
			if err := s.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}
