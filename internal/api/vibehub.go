package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/vibehub/internal/config"
	"github.com/npezzotti/vibehub/internal/database"
	"github.com/npezzotti/vibehub/internal/server"
	"github.com/npezzotti/vibehub/internal/service"
	"github.com/npezzotti/vibehub/internal/session"
	"github.com/sirupsen/logrus"
)

const tokenCookieKey = "token"

// Services bundles the business services the handlers delegate to.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Guests   *service.GuestService
	Rooms    *service.RoomService
	Musics   *service.MusicService
	Messages *service.MessageService
}

type VibeHubApp struct {
	log            *logrus.Logger
	repo           database.VibeHubRepository
	hub            *server.Hub
	sessions       session.CredentialResolver
	svc            Services
	limiter        *ipRateLimiter
	allowedOrigins []string
	maxUploadBytes int64
	mux            *http.Server
}

func NewVibeHubApp(mux *http.ServeMux, logger *logrus.Logger, hub *server.Hub, repo database.VibeHubRepository, sessions session.CredentialResolver, svc Services, cfg *config.Config) *VibeHubApp {
	s := &VibeHubApp{
		log:            logger,
		repo:           repo,
		hub:            hub,
		sessions:       sessions,
		svc:            svc,
		limiter:        newIpRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
		allowedOrigins: cfg.AllowedOrigins,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)

	mux.HandleFunc("POST /api/auth/register", s.rateLimit(s.register))
	mux.HandleFunc("POST /api/auth/login", s.rateLimit(s.login))
	mux.HandleFunc("POST /api/auth/logout", s.authMiddleware(s.logout))
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))

	mux.HandleFunc("POST /api/guest", s.rateLimit(s.createGuest))
	mux.HandleFunc("DELETE /api/guest", s.authMiddleware(s.deleteGuest))

	mux.HandleFunc("GET /api/user/{id}", s.getUser)
	mux.HandleFunc("PUT /api/user", s.authMiddleware(s.updateUser))
	mux.HandleFunc("DELETE /api/user", s.authMiddleware(s.deleteUser))

	mux.HandleFunc("GET /api/room", s.listRooms)
	mux.HandleFunc("GET /api/room/{id}", s.getRoom)
	mux.HandleFunc("POST /api/room", s.authMiddleware(s.createRoom))
	mux.HandleFunc("POST /api/room/{code}/join", s.authMiddleware(s.joinRoom))
	mux.HandleFunc("POST /api/room/{id}/leave", s.authMiddleware(s.leaveRoom))
	mux.HandleFunc("PUT /api/room/{id}/addSongs", s.authMiddleware(s.addSongs))
	mux.HandleFunc("PUT /api/room/{id}/deleteSongs", s.authMiddleware(s.deleteSongs))
	mux.HandleFunc("PUT /api/room/{roomId}/kick/{targetUserId}", s.authMiddleware(s.kick))
	mux.HandleFunc("PUT /api/room/{id}", s.authMiddleware(s.updateSettings))
	mux.HandleFunc("DELETE /api/room/{id}", s.authMiddleware(s.deleteRoom))

	mux.HandleFunc("GET /api/music/{id}", s.getMusic)
	mux.HandleFunc("HEAD /api/music/{id}", s.headMusic)

	mux.HandleFunc("GET /api/message", s.authMiddleware(s.listMessages))
	mux.HandleFunc("POST /api/message", s.authMiddleware(s.postMessage))

	mux.HandleFunc("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.mux = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *VibeHubApp) Start() error {
	s.log.Infof("starting server on %s", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *VibeHubApp) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

func (s *VibeHubApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("json encode")
	}
}

// writeError logs unexpected failures and writes the mapped error.
func (s *VibeHubApp) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errResp := errorResponse(err)
	logCtx := s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path})
	if caller, ok := CallerFrom(r.Context()); ok {
		logCtx = logCtx.WithField("caller_id", caller.Id())
	}

	if errResp.StatusCode >= http.StatusInternalServerError {
		logCtx.WithError(err).Error("request failed")
	} else {
		logCtx.WithField("status", errResp.StatusCode).Info(errResp.Message)
	}

	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *VibeHubApp) readJson(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *VibeHubApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		s.log.WithError(err).Error("health check failed")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(http.StatusText(http.StatusInternalServerError)))
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func createJwtCookie(tokenString string, exp time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieKey,
		Value:    tokenString,
		Path:     "/",
		Expires:  time.Now().Add(exp),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func clearJwtCookie() *http.Cookie {
	c := createJwtCookie("", 0)
	c.Expires = time.Unix(0, 0)
	c.MaxAge = -1
	return c
}
