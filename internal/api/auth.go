package api

import (
	"net/http"

	"github.com/npezzotti/vibehub/internal/service"
	"github.com/npezzotti/vibehub/internal/types"
)

type RegisterRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *VibeHubApp) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := s.readJson(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.svc.Auth.Register(r.Context(), service.RegisterInput{
		Nickname: req.Nickname,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, types.NewUser(user))
}

func (s *VibeHubApp) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := s.readJson(r, &req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, _, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, createJwtCookie(token, s.sessions.TTL()))
	s.writeJson(w, http.StatusOK, types.TokenResponse{Token: token})
}

func (s *VibeHubApp) logout(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.svc.Auth.Logout(r.Context(), caller, credentialFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, clearJwtCookie())
	w.WriteHeader(http.StatusNoContent)
}

func (s *VibeHubApp) session(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var resp types.Caller
	if caller.IsGuest() {
		guest := types.NewGuest(*caller.Guest)
		resp = types.Caller{Kind: "guest", Guest: &guest}
	} else {
		user := types.NewUser(*caller.User)
		resp = types.Caller{Kind: "user", User: &user}
	}

	s.writeJson(w, http.StatusOK, resp)
}

func (s *VibeHubApp) createGuest(w http.ResponseWriter, r *http.Request) {
	guest, token, err := s.svc.Guests.CreateGuest(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	g := types.NewGuest(guest)
	http.SetCookie(w, createJwtCookie(token, s.sessions.TTL()))
	s.writeJson(w, http.StatusOK, types.TokenResponse{Token: token, Guest: &g})
}

func (s *VibeHubApp) deleteGuest(w http.ResponseWriter, r *http.Request) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.svc.Guests.DeleteGuest(r.Context(), caller, credentialFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	http.SetCookie(w, clearJwtCookie())
	w.WriteHeader(http.StatusNoContent)
}
