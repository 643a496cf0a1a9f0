package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/types"
)

type PostMessageRequest struct {
	RoomId uuid.UUID `json:"roomId"`
	UserId uuid.UUID `json:"userId"`
	Text   string    `json:"text"`
}

func (s *VibeHubApp) listMessages(w http.ResponseWriter, r *http.Request) {
	roomId, err := uuid.Parse(r.URL.Query().Get("roomId"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages, err := s.svc.Messages.GetList(r.Context(), roomId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewMessages(messages))
}

func (s *VibeHubApp) postMessage(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())

	var req PostMessageRequest
	if err := s.readJson(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// messages can only be posted on one's own behalf
	if req.UserId != caller.Id() {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.svc.Messages.Add(r.Context(), req.RoomId, req.UserId, req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, types.NewMessage(msg))
}
