package api

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"encoding/json"
	"net/http"
	"time"
)

// identify answers 401 and returns false when the request carries no valid token.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	cookie, err := r.Cookie(auth.TokenCookie)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no token"})
		return domain.Identity{}, false
	}
	identity, err := s.auth.Profile(cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return domain.Identity{}, false
	}
	return identity, true
}

// setToken writes the session cookie. A negative maxAge clears it, zero makes
// it a session cookie.
func (s *Server) setToken(w http.ResponseWriter, token string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if s.config.SecureCookie {
		// cross-site clients only send the cookie back with SameSite=None
		cookie.SameSite = http.SameSiteNoneMode
	}
	switch {
	case maxAge < 0:
		cookie.MaxAge = -1
	case maxAge > 0:
		cookie.MaxAge = int(maxAge.Seconds())
	}
	http.SetCookie(w, cookie)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
