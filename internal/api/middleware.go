package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

func (s *VibeHubApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.WithField("path", r.URL.Path).Errorf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// credential returns the bearer token, falling back to the token cookie.
func credential(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}

	if cookie, err := r.Cookie(tokenCookieKey); err == nil {
		return cookie.Value
	}

	return ""
}

func (s *VibeHubApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred := credential(r)
		if cred == "" {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		caller, err := s.sessions.ResolveCaller(r.Context(), cred)
		if err != nil {
			errResp := errorResponse(err)
			if errResp.StatusCode == http.StatusInternalServerError {
				s.log.WithError(err).Error("resolve caller")
			} else {
				s.log.WithError(err).Debug("rejected credential")
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithCaller(r.Context(), caller, cred)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}

func (s *VibeHubApp) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIp(r)
		if !s.limiter.allow(ip) {
			s.log.WithFields(logrus.Fields{"ip": ip, "path": r.URL.Path}).Warn("rate limited")
			w.Header().Set("Retry-After", "1")
			errResp := NewTooManyRequestsError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		next(w, r)
	}
}
