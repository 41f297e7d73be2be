package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cfsage/memoria/internal/auth"
	"github.com/cfsage/memoria/internal/deconstruct"
	"github.com/cfsage/memoria/internal/llm"
	"github.com/cfsage/memoria/internal/persona"
	"github.com/cfsage/memoria/internal/profile"
	"github.com/cfsage/memoria/internal/store"
	"github.com/cfsage/memoria/internal/transcribe"
)

// fakeDB is an in-memory Storage implementation.
type fakeDB struct {
	users    map[string]store.User
	stories  map[string]store.Story
	profiles map[string]profile.Profile
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:    make(map[string]store.User),
		stories:  make(map[string]store.Story),
		profiles: make(map[string]profile.Profile),
	}
}

func (f *fakeDB) CreateUser(_ context.Context, email, passwordHash string) (store.User, error) {
	if _, ok := f.users[email]; ok {
		return store.User{}, store.ErrEmailTaken
	}
	user := store.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[email] = user
	return user, nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeDB) CreateStory(_ context.Context, id, title string, ownerID uuid.NullUUID) (store.Story, error) {
	story, ok := f.stories[id]
	if ok {
		story.Title = title
	} else {
		story = store.Story{ID: id, Title: title, OwnerID: ownerID, CreatedAt: time.Now()}
	}
	f.stories[id] = story
	return story, nil
}

func (f *fakeDB) GetStory(_ context.Context, id string) (store.Story, error) {
	story, ok := f.stories[id]
	if !ok {
		return store.Story{}, store.ErrNotFound
	}
	return story, nil
}

func (f *fakeDB) ListStoriesByOwner(_ context.Context, ownerID uuid.UUID) ([]store.Story, error) {
	var out []store.Story
	for _, story := range f.stories {
		if story.OwnerID.Valid && story.OwnerID.UUID == ownerID {
			out = append(out, story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDB) ListPublicStories(_ context.Context) ([]store.Story, error) {
	var out []store.Story
	for _, story := range f.stories {
		if story.IsPublic {
			out = append(out, story)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeDB) ToggleStoryPublic(_ context.Context, id string) (store.Story, error) {
	story, ok := f.stories[id]
	if !ok {
		return store.Story{}, store.ErrNotFound
	}
	story.IsPublic = !story.IsPublic
	f.stories[id] = story
	return story, nil
}

func (f *fakeDB) SaveProfile(_ context.Context, storyID string, prof profile.Profile) error {
	f.profiles[storyID] = prof
	return nil
}

func (f *fakeDB) GetProfile(_ context.Context, storyID string) (profile.Profile, error) {
	prof, ok := f.profiles[storyID]
	if !ok {
		return profile.Profile{}, store.ErrNotFound
	}
	return prof, nil
}

type fakeIndexer struct {
	indexed map[string]string
	err     error
}

func (f *fakeIndexer) Index(_ context.Context, storyID, transcript string) error {
	if f.err != nil {
		return f.err
	}
	if f.indexed == nil {
		f.indexed = make(map[string]string)
	}
	f.indexed[storyID] = transcript
	return nil
}

type fakeAnswerer struct {
	answer string
	err    error
}

func (f *fakeAnswerer) Respond(_ context.Context, _, question string, _ profile.Profile) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if strings.TrimSpace(question) == "" {
		return "", persona.ErrInvalidInput
	}
	return f.answer, nil
}

type testEnv struct {
	srv     *Server
	db      *fakeDB
	indexer *fakeIndexer
	answers *fakeAnswerer
	authMgr *auth.Manager
	uploads string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newFakeDB()
	indexer := &fakeIndexer{}
	answers := &fakeAnswerer{answer: "I remember it well."}
	authMgr := auth.NewManager("test-secret", time.Hour)
	uploads := t.TempDir()

	pipeline := deconstruct.New(&llm.MockCompleter{
		Response: `{"title":"Winter Tale","personality_traits":["kind","funny"]}`,
	}, nil, deconstruct.Options{})

	srv := NewServer(0, Deps{
		DB:          db,
		Pipeline:    pipeline,
		Narrative:   indexer,
		Responder:   answers,
		Transcriber: transcribe.Placeholder{},
		Auth:        authMgr,
		UploadDir:   uploads,
	})

	return &testEnv{srv: srv, db: db, indexer: indexer, answers: answers, authMgr: authMgr, uploads: uploads}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.srv.router.ServeHTTP(w, req)
	return w
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeJSON[map[string]string](t, w)
	if body["status"] != "Memoria Backend is Online" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/register", strings.NewReader(`{"email":"a@b.c","password":"pw"}`))
	if w := env.do(req); w.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", w.Code)
	}

	// Duplicate registration.
	req = httptest.NewRequest("POST", "/register", strings.NewReader(`{"email":"a@b.c","password":"pw"}`))
	if w := env.do(req); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: expected 400, got %d", w.Code)
	}

	// Login with the form-encoded credentials.
	form := url.Values{"username": {"a@b.c"}, "password": {"pw"}}
	req = httptest.NewRequest("POST", "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", w.Code)
	}
	body := decodeJSON[map[string]string](t, w)
	if body["access_token"] == "" || body["token_type"] != "bearer" {
		t.Errorf("token response = %v", body)
	}

	// Wrong password.
	form = url.Values{"username": {"a@b.c"}, "password": {"nope"}}
	req = httptest.NewRequest("POST", "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := env.do(req); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", w.Code)
	}
}

func uploadAudio(t *testing.T, env *testEnv) string {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "story.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprint(fw, "fake audio bytes")
	mw.Close()

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeJSON[map[string]string](t, w)
	if body["story_id"] == "" {
		t.Fatal("upload did not return a story id")
	}
	return body["story_id"]
}

func TestUploadAndProcess(t *testing.T) {
	env := newTestEnv(t)
	storyID := uploadAudio(t, env)

	if _, err := os.Stat(filepath.Join(env.uploads, storyID+".wav")); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	w := env.do(httptest.NewRequest("POST", "/process/"+storyID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("process: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		StoryID string          `json:"story_id"`
		Data    profile.Profile `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Title != "Winter Tale" {
		t.Errorf("profile title = %q", body.Data.Title)
	}

	if env.indexer.indexed[storyID] != transcribe.PlaceholderText {
		t.Errorf("transcript not indexed: %q", env.indexer.indexed[storyID])
	}
	if _, err := env.db.GetProfile(context.Background(), storyID); err != nil {
		t.Errorf("profile not persisted: %v", err)
	}
}

func TestProcessMissingUpload(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest("POST", "/process/"+uuid.New().String(), nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestChat(t *testing.T) {
	env := newTestEnv(t)
	env.db.stories["s1"] = store.Story{ID: "s1", Title: "Winter Tale"}
	env.db.profiles["s1"] = profile.Profile{Title: "Winter Tale", PersonalityTraits: []string{"kind"}}

	req := httptest.NewRequest("POST", "/chat/s1", strings.NewReader(`{"question":"What happened in 1978?"}`))
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeJSON[map[string]string](t, w)
	if body["answer"] != "I remember it well." {
		t.Errorf("answer = %q", body["answer"])
	}
}

func TestChatMissingProfile(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/chat/ghost", strings.NewReader(`{"question":"hello?"}`))
	if w := env.do(req); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestChatGenerationFailure(t *testing.T) {
	env := newTestEnv(t)
	env.db.profiles["s1"] = profile.Profile{Title: "T", PersonalityTraits: []string{"kind"}}
	env.answers.err = fmt.Errorf("%w: endpoint down", persona.ErrGenerationFailed)

	req := httptest.NewRequest("POST", "/chat/s1", strings.NewReader(`{"question":"hi"}`))
	if w := env.do(req); w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 on generation failure, got %d", w.Code)
	}
}

func TestPublicStoryVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.db.stories["s1"] = store.Story{ID: "s1", Title: "Winter Tale", IsPublic: false}
	env.db.profiles["s1"] = profile.Profile{Title: "Winter Tale", Summary: "snow", PersonalityTraits: []string{"kind"}}

	if w := env.do(httptest.NewRequest("GET", "/stories/public/s1", nil)); w.Code != http.StatusNotFound {
		t.Errorf("private story: expected 404, got %d", w.Code)
	}

	story := env.db.stories["s1"]
	story.IsPublic = true
	env.db.stories["s1"] = story

	w := env.do(httptest.NewRequest("GET", "/stories/public/s1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("public story: expected 200, got %d", w.Code)
	}
	prof := decodeJSON[profile.Profile](t, w)
	if prof.Title != "Winter Tale" {
		t.Errorf("title = %q", prof.Title)
	}

	// Listing shows only public stories with profile data.
	env.db.stories["s2"] = store.Story{ID: "s2", Title: "Hidden", IsPublic: false}
	wl := env.do(httptest.NewRequest("GET", "/stories/public", nil))
	cards := decodeJSON[[]storyCard](t, wl)
	if len(cards) != 1 || cards[0].ID != "s1" {
		t.Errorf("cards = %+v", cards)
	}
}

func TestTogglePublicOwnerOnly(t *testing.T) {
	env := newTestEnv(t)

	owner, _ := env.db.CreateUser(context.Background(), "owner@x.y", "h")
	_, _ = env.db.CreateUser(context.Background(), "other@x.y", "h")
	env.db.stories["s1"] = store.Story{ID: "s1", Title: "T", OwnerID: uuid.NullUUID{UUID: owner.ID, Valid: true}}

	ownerToken, _ := env.authMgr.MintToken("owner@x.y")
	otherToken, _ := env.authMgr.MintToken("other@x.y")

	req := httptest.NewRequest("PATCH", "/stories/s1/toggle-public", nil)
	req.Header.Set("Authorization", "Bearer "+otherToken)
	if w := env.do(req); w.Code != http.StatusForbidden {
		t.Errorf("non-owner: expected 403, got %d", w.Code)
	}

	req = httptest.NewRequest("PATCH", "/stories/s1/toggle-public", nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("owner toggle: expected 200, got %d", w.Code)
	}
	resp := decodeJSON[storyResponse](t, w)
	if !resp.IsPublic {
		t.Error("story should be public after toggle")
	}

	// Unauthenticated requests are rejected by the middleware.
	req = httptest.NewRequest("PATCH", "/stories/s1/toggle-public", nil)
	if w := env.do(req); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", w.Code)
	}
}

func TestListMyStories(t *testing.T) {
	env := newTestEnv(t)
	user, _ := env.db.CreateUser(context.Background(), "me@x.y", "h")
	env.db.stories["mine"] = store.Story{ID: "mine", Title: "Mine", OwnerID: uuid.NullUUID{UUID: user.ID, Valid: true}}
	env.db.stories["theirs"] = store.Story{ID: "theirs", Title: "Theirs"}

	token, _ := env.authMgr.MintToken("me@x.y")
	req := httptest.NewRequest("GET", "/stories/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := env.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	stories := decodeJSON[[]storyResponse](t, w)
	if len(stories) != 1 || stories[0].ID != "mine" {
		t.Errorf("stories = %+v", stories)
	}
}

func TestProcessIndexFailure(t *testing.T) {
	env := newTestEnv(t)
	env.indexer.err = errors.New("milvus down")
	storyID := uploadAudio(t, env)

	w := env.do(httptest.NewRequest("POST", "/process/"+storyID, nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on index failure, got %d", w.Code)
	}
}
