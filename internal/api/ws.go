package api

import (
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/vibehub/internal/server"
	"github.com/npezzotti/vibehub/internal/service"
)

// serveWs attaches the caller to the live events of the room it is in.
func (s *VibeHubApp) serveWs(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	roomId := caller.RoomId()
	if !roomId.Valid {
		s.writeError(w, r, service.ErrNotInRoom)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("error upgrading connection")
		return
	}

	client := server.NewClient(conn, s.hub, s.log, caller.Id(), roomId.UUID)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
