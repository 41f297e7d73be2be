package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cfsage/memoria/internal/deconstruct"
	"github.com/cfsage/memoria/internal/persona"
	"github.com/cfsage/memoria/internal/store"
)

type storyResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	IsPublic  bool      `json:"is_public"`
}

type storyCard struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Humor          string    `json:"humor"`
	Essence        string    `json:"essence"`
	MemorableQuote string    `json:"memorable_quote"`
	CreatedAt      time.Time `json:"created_at"`
}

// upload accepts a multipart audio file and mints a story id for it.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	storyID := uuid.New().String()
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".audio"
	}

	if err := os.MkdirAll(s.deps.UploadDir, 0o755); err != nil {
		s.logger.Error("create upload dir", "error", err)
		s.respondError(w, http.StatusInternalServerError, "file upload failed")
		return
	}

	dst, err := os.Create(filepath.Join(s.deps.UploadDir, storyID+ext))
	if err != nil {
		s.logger.Error("create upload file", "error", err)
		s.respondError(w, http.StatusInternalServerError, "file upload failed")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		s.logger.Error("write upload file", "error", err)
		s.respondError(w, http.StatusInternalServerError, "file upload failed")
		return
	}

	s.logger.Info("audio uploaded", "story_id", storyID, "filename", header.Filename)
	s.respondJSON(w, http.StatusOK, map[string]string{"story_id": storyID})
}

// process transcribes an uploaded recording, deconstructs it into a
// profile, persists the profile and story record, and indexes the
// transcript in the narrative store.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	ctx := r.Context()

	audioPath, ok := s.findUpload(storyID)
	if !ok {
		s.respondError(w, http.StatusNotFound, "Story file not found.")
		return
	}

	transcript, err := s.deps.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		s.logger.Error("transcription failed", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "transcription failed")
		return
	}

	prof, err := s.deps.Pipeline.Deconstruct(ctx, transcript)
	switch {
	case errors.Is(err, deconstruct.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, "transcript is empty")
		return
	case errors.Is(err, deconstruct.ErrModelUnavailable):
		s.respondError(w, http.StatusBadGateway, "story deconstruction failed")
		return
	case err != nil:
		s.logger.Error("deconstruction failed", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "story deconstruction failed")
		return
	}
	if prof.IsFallback() {
		s.logger.Warn("deconstruction used fallback profile", "story_id", storyID)
	}

	if _, err := s.deps.DB.CreateStory(ctx, storyID, prof.Title, s.optionalOwner(r)); err != nil {
		s.logger.Error("create story", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save story")
		return
	}
	if err := s.deps.DB.SaveProfile(ctx, storyID, prof); err != nil {
		s.logger.Error("save profile", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to save story profile")
		return
	}

	if err := s.deps.Narrative.Index(ctx, storyID, transcript); err != nil {
		s.logger.Error("index transcript", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to index story")
		return
	}

	s.deps.Events.StoryProcessed(storyID, prof.Title, prof.IsFallback())
	s.logger.Info("story processed", "story_id", storyID, "title", prof.Title)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"story_id": storyID,
		"data":     prof,
	})
}

type chatRequest struct {
	Question string `json:"question"`
}

// chat answers a question in the story persona's voice.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prof, err := s.deps.DB.GetProfile(ctx, storyID)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Story data not found.")
		return
	}
	if err != nil {
		s.logger.Error("load profile", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load story")
		return
	}

	answer, err := s.deps.Responder.Respond(ctx, storyID, req.Question, prof)
	switch {
	case errors.Is(err, persona.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	case errors.Is(err, persona.ErrGenerationFailed):
		// No safe fallback answer exists; fail visibly rather than
		// fabricate one.
		s.logger.Error("persona generation failed", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusBadGateway, "AI chat failed")
		return
	case err != nil:
		s.logger.Error("persona response failed", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "AI chat failed")
		return
	}

	s.deps.Events.StoryChat(storyID, persona.Intent(req.Question))

	s.respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) listMyStories(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	stories, err := s.deps.DB.ListStoriesByOwner(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("list stories", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list stories")
		return
	}

	out := make([]storyResponse, 0, len(stories))
	for _, story := range stories {
		out = append(out, storyResponse{
			ID:        story.ID,
			Title:     story.Title,
			CreatedAt: story.CreatedAt,
			IsPublic:  story.IsPublic,
		})
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) listPublicStories(w http.ResponseWriter, r *http.Request) {
	stories, err := s.deps.DB.ListPublicStories(r.Context())
	if err != nil {
		s.logger.Error("list public stories", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list stories")
		return
	}

	cards := make([]storyCard, 0, len(stories))
	for _, story := range stories {
		prof, err := s.deps.DB.GetProfile(r.Context(), story.ID)
		if err != nil {
			// A story without profile data is not displayable.
			continue
		}
		title := prof.Title
		if title == "" {
			title = story.Title
		}
		cards = append(cards, storyCard{
			ID:             story.ID,
			Title:          title,
			Summary:        prof.Summary,
			Humor:          prof.Humor,
			Essence:        prof.Essence,
			MemorableQuote: prof.MemorableQuote,
			CreatedAt:      story.CreatedAt,
		})
	}
	s.respondJSON(w, http.StatusOK, cards)
}

func (s *Server) getPublicStory(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")

	story, err := s.deps.DB.GetStory(r.Context(), storyID)
	if err != nil || !story.IsPublic {
		s.respondError(w, http.StatusNotFound, "Public story not found or is private")
		return
	}

	prof, err := s.deps.DB.GetProfile(r.Context(), storyID)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Story data is missing")
		return
	}

	s.respondJSON(w, http.StatusOK, prof)
}

func (s *Server) togglePublic(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")

	user, err := s.currentUser(r)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	story, err := s.deps.DB.GetStory(r.Context(), storyID)
	if err != nil || !story.OwnerID.Valid || story.OwnerID.UUID != user.ID {
		s.respondError(w, http.StatusForbidden, "Story not found or not authorized")
		return
	}

	updated, err := s.deps.DB.ToggleStoryPublic(r.Context(), storyID)
	if err != nil {
		s.logger.Error("toggle story visibility", "story_id", storyID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update story")
		return
	}

	s.respondJSON(w, http.StatusOK, storyResponse{
		ID:        updated.ID,
		Title:     updated.Title,
		CreatedAt: updated.CreatedAt,
		IsPublic:  updated.IsPublic,
	})
}

// findUpload locates the uploaded audio file for a story id by filename
// prefix.
func (s *Server) findUpload(storyID string) (string, bool) {
	entries, err := os.ReadDir(s.deps.UploadDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), storyID) {
			return filepath.Join(s.deps.UploadDir, entry.Name()), true
		}
	}
	return "", false
}

// optionalOwner resolves the story owner from a bearer token when one is
// presented; processing without auth leaves the story unowned.
func (s *Server) optionalOwner(r *http.Request) uuid.NullUUID {
	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return uuid.NullUUID{}
	}
	email, err := s.deps.Auth.ParseToken(tokenString)
	if err != nil {
		return uuid.NullUUID{}
	}
	user, err := s.deps.DB.GetUserByEmail(r.Context(), email)
	if err != nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: user.ID, Valid: true}
}
