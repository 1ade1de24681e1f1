package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/scriptcast/internal/api/middleware"
	"github.com/iconidentify/scriptcast/internal/config"
	"github.com/iconidentify/scriptcast/internal/domain"
	"github.com/iconidentify/scriptcast/internal/repository"
	"github.com/iconidentify/scriptcast/internal/service"
	"github.com/iconidentify/scriptcast/pkg/heygen"
	"github.com/iconidentify/scriptcast/pkg/openrouter"
	"github.com/iconidentify/scriptcast/pkg/vimeo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSessionRepo is a minimal in-memory SessionRepository plus
// ConfigRepository for handler tests.
type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[domain.SessionID]*domain.Session
	configs  map[string]string
}

func newStubSessionRepo(sessions ...*domain.Session) *stubSessionRepo {
	m := &stubSessionRepo{
		sessions: make(map[domain.SessionID]*domain.Session),
		configs:  make(map[string]string),
	}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *stubSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *stubSessionRepo) Get(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *stubSessionRepo) UpdateScript(ctx context.Context, id domain.SessionID, script domain.Script) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Script = &script
	return nil
}

func (m *stubSessionRepo) UpdatePublication(ctx context.Context, id domain.SessionID, status string, publishedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.PublicationStatus = status
	s.PublishedAt = publishedAt
	return nil
}

func (m *stubSessionRepo) AcquireLease(ctx context.Context, id domain.SessionID, owner string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	now := time.Now()
	if s.LeaseHeld(now) {
		return domain.ErrGenerationInFlight
	}
	expiry := now.Add(ttl)
	s.LeaseOwner = owner
	s.LeaseExpiry = &expiry
	return nil
}

func (m *stubSessionRepo) ReleaseLease(ctx context.Context, id domain.SessionID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if s.LeaseOwner == owner {
		s.LeaseOwner = ""
		s.LeaseExpiry = nil
	}
	return nil
}

func (m *stubSessionRepo) GetConfig(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configs[key], nil
}

func (m *stubSessionRepo) SetConfig(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[key] = value
	return nil
}

// stubChat implements openrouter.Client.
type stubChat struct {
	reply string
	err   error
	calls int
}

func (m *stubChat) Send(ctx context.Context, messages []openrouter.Message, model string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

type stubHeyGen struct{}

func (m *stubHeyGen) Submit(ctx context.Context, script domain.Script) (string, error) {
	return "vid1", nil
}

func (m *stubHeyGen) Check(ctx context.Context, videoID string) (*heygen.CheckResult, error) {
	return &heygen.CheckResult{Status: heygen.StatusCompleted, VideoURL: "https://cdn.example.com/v.mp4"}, nil
}

type stubVimeo struct{}

func (m *stubVimeo) Upload(ctx context.Context, path string, meta vimeo.Metadata) (string, error) {
	return "/videos/123", nil
}

func (m *stubVimeo) SetPrivacy(ctx context.Context, uri, field, value string) error { return nil }

func (m *stubVimeo) Link(ctx context.Context, uri string) (string, error) {
	return "https://host/v/abc", nil
}

type stubDownloader struct{}

func (m *stubDownloader) DownloadFile(ctx context.Context, url, destPath string) error {
	return os.WriteFile(destPath, []byte("bytes"), 0644)
}

// newSessionRouter wires real services over stubs behind a chi router
// with a fixed authenticated user.
func newSessionRouter(t *testing.T, sessions *stubSessionRepo, chat *stubChat, userID string) (http.Handler, *repository.InMemoryJobRepository) {
	t.Helper()

	jobs := repository.NewInMemoryJobRepository()
	videoSvc := service.NewVideoService(
		sessions,
		jobs,
		&stubHeyGen{},
		&stubVimeo{},
		&stubDownloader{},
		config.StorageConfig{TempPath: t.TempDir()},
		config.WorkerConfig{LeaseTTL: time.Minute},
		config.HeyGenConfig{PollInterval: time.Millisecond, PollAttempts: 5},
		testLogger(),
	)
	scriptSvc := service.NewScriptService(sessions, chat, "model", testLogger())
	h := NewSessionHandler(scriptSvc, videoSvc, testLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), userID)))
		})
	})
	r.Post("/sessions/{sessionID}/extract-script", h.ExtractScript)
	r.Get("/sessions/{sessionID}/script", h.GetScript)
	r.Put("/sessions/{sessionID}/script", h.UpdateScript)
	r.Post("/sessions/{sessionID}/generate-video", h.GenerateVideo)

	return r, jobs
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateVideo_Accepted(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, jobs := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "POST", "/sessions/s1/generate-video",
		`{"script": {"script1": "Hello", "script2": "World"}}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp GenerateVideoResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Status != "success" || resp.JobID == "" {
		t.Errorf("response = %+v", resp)
	}

	if _, err := jobs.Dequeue(context.Background()); err != nil {
		t.Errorf("no job enqueued: %v", err)
	}
	session, _ := sessions.Get(context.Background(), "s1")
	if session.PublicationStatus != domain.StatusGenerating {
		t.Errorf("session status = %q", session.PublicationStatus)
	}
}

func TestGenerateVideo_MissingScript(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "POST", "/sessions/s1/generate-video", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateVideo_Conflict(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	body := `{"script": {"script1": "a", "script2": "b"}}`
	if rec := doJSON(t, router, "POST", "/sessions/s1/generate-video", body); rec.Code != http.StatusAccepted {
		t.Fatalf("first trigger status = %d", rec.Code)
	}

	rec := doJSON(t, router, "POST", "/sessions/s1/generate-video", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGenerateVideo_ForeignSession(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, jobs := newSessionRouter(t, sessions, &stubChat{}, "intruder")

	rec := doJSON(t, router, "POST", "/sessions/s1/generate-video",
		`{"script": {"script1": "a", "script2": "b"}}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	if _, err := jobs.Dequeue(context.Background()); err == nil {
		t.Error("job enqueued despite forbidden request")
	}
}

func TestGenerateVideo_SessionNotFound(t *testing.T) {
	router, _ := newSessionRouter(t, newStubSessionRepo(), &stubChat{}, "u1")

	rec := doJSON(t, router, "POST", "/sessions/missing/generate-video",
		`{"script": {"script1": "a", "script2": "b"}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetScript_Success(t *testing.T) {
	published := time.Now().Add(-10 * time.Minute)
	sessions := newStubSessionRepo(&domain.Session{
		ID:                "s1",
		OwnerID:           "u1",
		Script:            &domain.Script{Script1: "First", Script2: "Second"},
		PublicationStatus: "https://host/v/abc",
		PublishedAt:       &published,
	})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "GET", "/sessions/s1/script", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ScriptResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Data == nil || resp.Data.Script1 != "First" {
		t.Errorf("data = %+v", resp.Data)
	}
	if resp.VideoURL != "https://host/v/abc" {
		t.Errorf("video_url = %q", resp.VideoURL)
	}
}

func TestGetScript_FreshPublicationSmoothed(t *testing.T) {
	published := time.Now().Add(-time.Minute)
	sessions := newStubSessionRepo(&domain.Session{
		ID:                "s1",
		OwnerID:           "u1",
		Script:            &domain.Script{Script1: "a", Script2: "b"},
		PublicationStatus: "https://host/v/abc",
		PublishedAt:       &published,
	})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "GET", "/sessions/s1/script", "")
	var resp ScriptResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.VideoURL != domain.StatusGenerating {
		t.Errorf("video_url = %q, want generating for a fresh publication", resp.VideoURL)
	}
}

func TestGetScript_NotFound(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "GET", "/sessions/s1/script", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for session without script", rec.Code)
	}
}

func TestUpdateScript_Success(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "PUT", "/sessions/s1/script",
		`{"script": {"script1": "edited", "script2": "also edited"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	session, _ := sessions.Get(context.Background(), "s1")
	if session.Script == nil || session.Script.Script1 != "edited" {
		t.Errorf("script = %+v", session.Script)
	}
}

func TestExtractScript_Success(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	chat := &stubChat{reply: `{"script1": "a", "script2": "b"}`}
	router, _ := newSessionRouter(t, sessions, chat, "u1")

	rec := doJSON(t, router, "POST", "/sessions/s1/extract-script",
		`{"conversation_list": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	session, _ := sessions.Get(context.Background(), "s1")
	if !session.HasScript() {
		t.Error("script not stored")
	}
}

func TestExtractScript_EmptyConversation(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	router, _ := newSessionRouter(t, sessions, &stubChat{}, "u1")

	rec := doJSON(t, router, "POST", "/sessions/s1/extract-script", `{"conversation_list": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExtractScript_UnparseableReply(t *testing.T) {
	sessions := newStubSessionRepo(&domain.Session{ID: "s1", OwnerID: "u1"})
	chat := &stubChat{reply: "I could not find any scripts."}
	router, _ := newSessionRouter(t, sessions, chat, "u1")

	rec := doJSON(t, router, "POST", "/sessions/s1/extract-script",
		`{"conversation_list": [{"role": "user", "content": "hi"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
