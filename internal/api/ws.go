package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/dannynguyen57/Chameleon-X-sub000/internal/notify"
	"github.com/dannynguyen57/Chameleon-X-sub000/internal/obslog"
)

// WSEvent is the push payload. Clients treat it as an invalidation
// signal and refetch the room view over the HTTP API.
type WSEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// WSServer serves the "room changed" push feed. It runs on its own
// net/http listener because the websocket handshake needs connection
// hijacking that the fasthttp request path does not provide.
type WSServer struct {
	hub    *notify.Hub
	server *http.Server

	pingInterval time.Duration
}

func NewWSServer(hub *notify.Hub) *WSServer {
	s := &WSServer{hub: hub, pingInterval: 30 * time.Second}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/rooms/", s.handle)
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *WSServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	obslog.L().Info("ws_listen", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *WSServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handle upgrades GET /v1/rooms/<id>/ws and streams change events for
// that room until either side closes.
func (s *WSServer) handle(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/rooms/")
	roomID, tail, _ := strings.Cut(rest, "/")
	roomID = strings.ToUpper(strings.TrimSpace(roomID))
	if roomID == "" || tail != "ws" {
		http.NotFound(w, r)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")

	events, cancel := s.hub.Subscribe(roomID)
	defer cancel()

	ctx := r.Context()
	// Reads are discarded; the feed is one-way but the read loop is what
	// surfaces the peer's close frame.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(s.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server shutdown")
			return
		case <-readDone:
			return
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		case id, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "feed closed")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(wctx, conn, WSEvent{Type: "room_changed", RoomID: id})
			wcancel()
			if err != nil {
				return
			}
		}
	}
}
