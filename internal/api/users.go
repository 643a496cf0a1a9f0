package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/npezzotti/vibehub/internal/service"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/npezzotti/vibehub/internal/types"
)

// UpdateUserRequest leaves omitted fields unchanged. An empty avatar
// removes it.
type UpdateUserRequest struct {
	Nickname *string `json:"nickname"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Avatar   *string `json:"avatar"`
}

func (s *VibeHubApp) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewPublicUser(user))
}

// registeredCaller returns the caller if it is a registered user and writes
// a 403 otherwise.
func (s *VibeHubApp) registeredCaller(w http.ResponseWriter, r *http.Request) (session.Caller, bool) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return session.Caller{}, false
	}

	if caller.User == nil {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return session.Caller{}, false
	}

	return caller, true
}

func (s *VibeHubApp) updateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.registeredCaller(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := s.readJson(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.svc.Users.UpdateProfile(r.Context(), caller.Id(), service.UpdateProfileInput{
		Nickname: req.Nickname,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, types.NewUser(user))
}

func (s *VibeHubApp) deleteUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.registeredCaller(w, r)
	if !ok {
		return
	}

	if err := s.svc.Users.DeleteAccount(r.Context(), caller.Id()); err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, clearJwtCookie())
	w.WriteHeader(http.StatusNoContent)
}
