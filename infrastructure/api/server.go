package api

import (
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Config struct {
	ClientURL     string
	UploadsDir    string
	TokenDuration time.Duration
	SecureCookie  bool
}

// Server exposes the account, history and directory endpoints next to the
// websocket entry point.
type Server struct {
	log        *slog.Logger
	config     Config
	auth       services.IAuthService
	chat       services.IChatService
	monitoring *observability.MonitoringManager
	ws         http.Handler
}

func NewServer(log *slog.Logger, config Config, authService services.IAuthService,
	chatService services.IChatService, monitoring *observability.MonitoringManager, ws http.Handler) *Server {
	return &Server{
		log:        log,
		config:     config,
		auth:       authService,
		chat:       chatService,
		monitoring: monitoring,
		ws:         ws,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type idResponse struct {
	ID string `json:"id"`
}

type profileResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.ClientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/test", s.handleTest)
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)
	r.Get("/profile", s.handleProfile)
	r.Get("/messages/{userId}", s.handleMessages)
	r.Get("/people", s.handlePeople)
	r.Get("/debug/stats", s.handleStats)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.config.UploadsDir))))
	r.Method(http.MethodGet, "/ws", s.ws)
	return r
}

func (s *Server) handleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "test ok")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	session, err := s.auth.Register(r.Context(), body.Username, body.Password)
	switch {
	case err == nil:
	case stderrors.Is(err, errors.ErrInvalidUsername), stderrors.Is(err, errors.ErrInvalidPassword):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	default:
		s.log.Error("Registration failed", "username", body.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "registration failed"})
		return
	}

	s.setToken(w, session.Token, s.config.TokenDuration)
	writeJSON(w, http.StatusCreated, idResponse{ID: session.Identity.UserID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}

	session, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if stderrors.Is(err, errors.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.log.Error("Login failed", "username", body.Username, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "login failed"})
		return
	}

	s.setToken(w, session.Token, s.config.TokenDuration)
	writeJSON(w, http.StatusOK, idResponse{ID: session.Identity.UserID})
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.setToken(w, "", -1)
	writeJSON(w, http.StatusOK, "ok")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{UserID: identity.UserID, Username: identity.Username})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.identify(w, r)
	if !ok {
		return
	}

	history, err := s.chat.History(r.Context(), identity.UserID, chi.URLParam(r, "userId"))
	if err != nil {
		s.log.Error("History failed", "user_id", identity.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	people, err := s.chat.People(r.Context())
	if err != nil {
		s.log.Error("People failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "people unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// handleStats is reserved to signed-in users: recent deliveries name who talks to whom.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.identify(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.monitoring.GetLatest())
}
