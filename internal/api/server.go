// Package api exposes the HTTP surface: upload and processing of story
// audio, persona chat, story browsing, and account endpoints. Business
// logic stays in the injected collaborators; handlers translate between
// HTTP and the core contracts.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/cfsage/memoria/internal/auth"
	"github.com/cfsage/memoria/internal/events"
	"github.com/cfsage/memoria/internal/profile"
	"github.com/cfsage/memoria/internal/store"
	"github.com/cfsage/memoria/internal/transcribe"
)

// Storage is the relational persistence contract the handlers need.
// *store.Store satisfies it.
type Storage interface {
	CreateUser(ctx context.Context, email, passwordHash string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateStory(ctx context.Context, id, title string, ownerID uuid.NullUUID) (store.Story, error)
	GetStory(ctx context.Context, id string) (store.Story, error)
	ListStoriesByOwner(ctx context.Context, ownerID uuid.UUID) ([]store.Story, error)
	ListPublicStories(ctx context.Context) ([]store.Story, error)
	ToggleStoryPublic(ctx context.Context, id string) (store.Story, error)
	SaveProfile(ctx context.Context, storyID string, prof profile.Profile) error
	GetProfile(ctx context.Context, storyID string) (profile.Profile, error)
}

// Deconstructor turns a transcript into a profile.
type Deconstructor interface {
	Deconstruct(ctx context.Context, transcript string) (profile.Profile, error)
}

// Indexer adds a story transcript to the narrative store.
type Indexer interface {
	Index(ctx context.Context, storyID, transcript string) error
}

// Answerer produces an in-persona answer for a story.
type Answerer interface {
	Respond(ctx context.Context, storyID, question string, prof profile.Profile) (string, error)
}

// Deps bundles the collaborators injected into the server. All handles are
// constructed once at process start and shared.
type Deps struct {
	DB          Storage
	Pipeline    Deconstructor
	Narrative   Indexer
	Responder   Answerer
	Transcriber transcribe.Transcriber
	Auth        *auth.Manager
	Events      *events.Publisher
	Logger      *log.Logger
	UploadDir   string
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	logger *log.Logger
}

func NewServer(port int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: deps.Logger,
	}

	router.Get("/health", s.health)

	router.Post("/register", s.register)
	router.Post("/token", s.token)

	router.Post("/upload", s.upload)
	router.Post("/process/{storyID}", s.process)
	router.Post("/chat/{storyID}", s.chat)

	router.Get("/stories/public", s.listPublicStories)
	router.Get("/stories/public/{storyID}", s.getPublicStory)

	router.Group(func(r chi.Router) {
		r.Use(deps.Auth.Middleware)
		r.Get("/stories/me", s.listMyStories)
		r.Patch("/stories/{storyID}/toggle-public", s.togglePublic)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("api server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "Memoria Backend is Online"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, detail string) {
	s.respondJSON(w, status, map[string]string{"detail": detail})
}

// currentUser resolves the authenticated user set by the auth middleware.
func (s *Server) currentUser(r *http.Request) (store.User, error) {
	email, ok := auth.EmailFromContext(r.Context())
	if !ok {
		return store.User{}, fmt.Errorf("no authenticated user in context")
	}
	return s.deps.DB.GetUserByEmail(r.Context(), email)
}
