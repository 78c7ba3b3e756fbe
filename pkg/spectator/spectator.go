// Package spectator streams race snapshots to read-only web clients.
package spectator

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/mpapenbr/checkpoint-racer/log"
	"github.com/mpapenbr/checkpoint-racer/pkg/model"
	"github.com/mpapenbr/checkpoint-racer/pkg/utils/broadcast"
)

const (
	writeWait  = 2 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type (
	// SnapshotSource provides the current race state
	SnapshotSource interface {
		Snapshot() model.Snapshot
	}

	Server struct {
		source   SnapshotSource
		bcst     broadcast.BroadcastServer[model.Snapshot]
		upgrader websocket.Upgrader
		srv      *http.Server
		log      *log.Logger
	}
)

//nolint:whitespace // editor/linter issue
func New(
	source SnapshotSource,
	bcst broadcast.BroadcastServer[model.Snapshot],
) *Server {
	return &Server{
		source: source,
		bcst:   bcst,
		upgrader: websocket.Upgrader{
			// spectators are read-only, any origin may watch
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log.Default().Named("spectator"),
	}
}

// Handler serves GET /snapshot and the websocket stream GET /ws
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /snapshot", s.snapshotHandler)
	mux.HandleFunc("GET /ws", s.websocketHandler)
	return newCORS().Handler(mux)
}

// Start listens on addr and serves in the background
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.log.Info("Starting spectator server", log.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("spectator server stopped", log.ErrorField(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.log.Warn("could not write snapshot", log.ErrorField(err))
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", log.ErrorField(err))
		return
	}
	defer c.Close()
	s.log.Debug("spectator connected", log.String("remote", r.RemoteAddr))

	sub := s.bcst.Subscribe()
	defer s.bcst.CancelSubscription(sub)

	closed := make(chan struct{})
	go s.readPump(c, closed)

	if err := s.write(c, s.source.Snapshot()); err != nil {
		return
	}
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case snap, ok := <-sub:
			if !ok {
				//nolint:errcheck // best effort
				c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait))
				return
			}
			if err := s.write(c, snap); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			s.log.Debug("spectator disconnected", log.String("remote", r.RemoteAddr))
			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump discards client messages. Spectators never feed data back.
func (s *Server) readPump(c *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	c.SetReadLimit(512)
	//nolint:errcheck // reset on every pong
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) write(c *websocket.Conn, snap model.Snapshot) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.WriteJSON(snap); err != nil {
		s.log.Debug("write failed", log.ErrorField(err))
		return err
	}
	return nil
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		MaxAge:         int(2 * time.Hour / time.Second),
	})
}
