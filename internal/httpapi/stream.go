package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingEvery  = 30 * time.Second
	writeLimit = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// origins are already enforced by the CORS middleware and API keys
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleEvents streams table change events to a websocket client until
// either side goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.Broker == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("ws_upgrade_error", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	ch, err := s.Broker.Subscribe(ctx)
	if err != nil {
		s.Logger.Warn("ws_subscribe_error", zap.Error(err))
		return
	}
	s.Logger.Info("ws_stream_started", zap.String("remote", r.RemoteAddr))

	// reader: detects the client closing the connection
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.Logger.Debug("ws_read_error", zap.Error(err))
				}
				return
			}
		}
	}()

	ping := time.NewTicker(pingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("ws_stream_closed", zap.String("remote", r.RemoteAddr))
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeLimit))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeLimit))
			if err := conn.WriteJSON(e); err != nil {
				s.Logger.Debug("ws_write_error", zap.Error(err))
				return
			}
		}
	}
}
