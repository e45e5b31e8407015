package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/rhymist/internal/generation"
	"github.com/MarcoPoloResearchLab/rhymist/internal/payments"
	"github.com/MarcoPoloResearchLab/rhymist/internal/poems"
	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const testAdminPassphrase = "open-sesame"

type stubComposer struct {
	prompt string
	err    error
}

func (s *stubComposer) ComposePrompt(ctx context.Context, verse, stanza string) (string, error) {
	return s.prompt, s.err
}

type stubGenerator struct {
	url string
	err error
}

func (s *stubGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return s.url, s.err
}

type stubFetcher struct {
	filename string
	err      error
}

func (s *stubFetcher) FetchAndStore(ctx context.Context, transientURL string) (string, error) {
	return s.filename, s.err
}

type stubPaymentIntents struct {
	clientSecret string
	err          error
}

func (s *stubPaymentIntents) CreateIntent(ctx context.Context) (string, error) {
	return s.clientSecret, s.err
}

type testStack struct {
	handler   http.Handler
	poems     *poems.Service
	composer  *stubComposer
	generator *stubGenerator
	fetcher   *stubFetcher
	intents   *stubPaymentIntents
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server_test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("unexpected error opening test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unexpected error obtaining sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&poems.Poem{}, &poems.Image{}); err != nil {
		t.Fatalf("unexpected error migrating schema: %v", err)
	}

	poemService, err := poems.NewService(poems.ServiceConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing poem service: %v", err)
	}

	verifier := payments.NewVerifier(payments.VerifierConfig{
		AdminPassphrase: testAdminPassphrase,
	})

	composer := &stubComposer{prompt: "a rhino under a red rose"}
	generator := &stubGenerator{url: "https://cdn.example.com/generated/abc.png"}
	fetcher := &stubFetcher{filename: "deadbeef.png"}

	generationService, err := generation.NewService(generation.ServiceConfig{
		Store:     poemService,
		Verifier:  verifier,
		Composer:  composer,
		Generator: generator,
		Fetcher:   fetcher,
		Limits:    generation.Limits{Standard: 2, Admin: 5},
	})
	if err != nil {
		t.Fatalf("unexpected error constructing generation service: %v", err)
	}

	intents := &stubPaymentIntents{clientSecret: "pi_123_secret"}

	handler, err := NewHTTPHandler(Dependencies{
		Poems:      poemService,
		Generation: generationService,
		Payments:   intents,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing handler: %v", err)
	}

	return &testStack{
		handler:   handler,
		poems:     poemService,
		composer:  composer,
		generator: generator,
		fetcher:   fetcher,
		intents:   intents,
	}
}

func (s *testStack) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("unexpected error encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("unexpected error decoding response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func (s *testStack) createPoem(t *testing.T, content string) uint {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/api/poems", map[string]any{"content": content})
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status creating poem: %d %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	poemID, ok := body["poem_id"].(float64)
	if !ok {
		t.Fatalf("missing poem_id in response: %v", body)
	}
	return uint(poemID)
}

var errStubUpstream = errors.New("upstream unavailable")
