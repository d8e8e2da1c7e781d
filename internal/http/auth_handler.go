package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"floodwatch/internal/domain"
	"floodwatch/internal/service"
)

// SessionCache is the slice of app.Context the auth handler needs.
type SessionCache interface {
	Forget(token string)
}

type AuthHandler struct {
	authService service.AuthService
	sessions    SessionCache
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, sessions SessionCache, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, logger: logger}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/sign-up":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.SignUp(w, r)
	case "/api/v1/auth/sign-in":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.SignIn(w, r)
	case "/api/v1/auth/sign-out":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		h.SignOut(w, r)
	case "/api/v1/auth/me":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		caller := callerFrom(r.Context())
		if caller == nil {
			writeError(w, h.logger, domain.ErrUnauthenticated)
			return
		}
		writeJSON(w, http.StatusOK, Ok(caller))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.authService.SignUp(r.Context(), callerFrom(r.Context()), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.IPAddress = r.RemoteAddr
	resp, err := h.authService.SignIn(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

// SignOut is idempotent: an unknown token still succeeds.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token := tokenFromRequest(r)
	if token != "" {
		if err := h.authService.SignOut(r.Context(), token); err != nil {
			writeError(w, h.logger, err)
			return
		}
		if h.sessions != nil {
			h.sessions.Forget(token)
		}
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
