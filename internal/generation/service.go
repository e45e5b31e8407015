package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/rhymist/internal/payments"
	"github.com/MarcoPoloResearchLab/rhymist/internal/poems"
	"go.uber.org/zap"
)

var (
	// ErrInvalidRequest indicates missing or malformed request fields.
	ErrInvalidRequest = errors.New("generation: invalid request")
	// ErrPaymentVerification indicates neither the admin override nor the
	// payment proof could be confirmed.
	ErrPaymentVerification = errors.New("generation: payment verification failed")

	errMissingStore     = errors.New("poem store is required")
	errMissingVerifier  = errors.New("payment verifier is required")
	errMissingComposer  = errors.New("prompt composer is required")
	errMissingGenerator = errors.New("image generator is required")
	errMissingFetcher   = errors.New("image fetcher is required")

	noOpLogger = zap.NewNop()
)

// Store is the slice of the poem store the orchestrator needs.
type Store interface {
	CountImages(ctx context.Context, poemID uint) (int64, error)
	InsertImage(ctx context.Context, poemID uint, filename string, verseNumber, stanzaNumber int, limit int64) (uint, error)
}

// Verifier confirms payment proofs and recognizes the admin override.
type Verifier interface {
	IsAdmin(passphrase string) bool
	Verify(ctx context.Context, proof payments.Proof) bool
}

// Composer turns a verse and its stanza context into an image prompt.
type Composer interface {
	ComposePrompt(ctx context.Context, verse, stanza string) (string, error)
}

// Generator synthesizes an image for a prompt and returns its transient URL.
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Fetcher downloads a transient image URL into durable storage.
type Fetcher interface {
	FetchAndStore(ctx context.Context, transientURL string) (string, error)
}

// Limits carries the per-poem image ceilings by caller privilege.
type Limits struct {
	Standard int64
	Admin    int64
}

// Request is one per-verse generation call.
type Request struct {
	PoemID          uint
	Verse           string
	Stanza          string
	VerseNumber     int
	StanzaNumber    int
	AdminPassphrase string
	PaymentIntentID string
}

// Result describes a recorded image.
type Result struct {
	PoemID    uint
	ImageID   uint
	ImagePath string
}

// ServiceConfig bundles the orchestrator dependencies.
type ServiceConfig struct {
	Store     Store
	Verifier  Verifier
	Composer  Composer
	Generator Generator
	Fetcher   Fetcher
	Limits    Limits
	Clock     func() time.Time
	Logger    *zap.Logger
}

// Service sequences one image generation per call: payment, quota, prompt,
// synthesis, download, record. Each call is a single attempt with no retry
// or compensation; callers iterate verses and tolerate per-verse failures.
type Service struct {
	store     Store
	verifier  Verifier
	composer  Composer
	generator Generator
	fetcher   Fetcher
	limits    Limits
	clock     func() time.Time
	logger    *zap.Logger
}

// NewService constructs the orchestrator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	if cfg.Verifier == nil {
		return nil, errMissingVerifier
	}
	if cfg.Composer == nil {
		return nil, errMissingComposer
	}
	if cfg.Generator == nil {
		return nil, errMissingGenerator
	}
	if cfg.Fetcher == nil {
		return nil, errMissingFetcher
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		store:     cfg.Store,
		verifier:  cfg.Verifier,
		composer:  cfg.Composer,
		generator: cfg.Generator,
		fetcher:   cfg.Fetcher,
		limits:    cfg.Limits,
		clock:     clock,
		logger:    logger,
	}, nil
}

// RequestImage runs the full per-verse pipeline and records the image.
// The quota is read once up front so a caller over the ceiling is rejected
// before any upstream spend, and enforced again atomically at insert.
func (s *Service) RequestImage(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	limit := s.limits.Standard
	switch {
	case s.verifier.IsAdmin(req.AdminPassphrase):
		limit = s.limits.Admin
	case s.verifier.Verify(ctx, payments.Proof{PaymentIntentID: req.PaymentIntentID}):
	default:
		s.logger.Warn("payment verification failed",
			zap.Uint("poem_id", req.PoemID),
			zap.Int("verse_number", req.VerseNumber))
		return Result{}, ErrPaymentVerification
	}

	count, err := s.store.CountImages(ctx, req.PoemID)
	if err != nil {
		return Result{}, err
	}
	if count >= limit {
		return Result{}, poems.ErrQuotaExceeded
	}

	startedAt := s.clock()

	prompt, err := s.composer.ComposePrompt(ctx, req.Verse, req.Stanza)
	if err != nil {
		s.logger.Error("prompt composition failed", zap.Uint("poem_id", req.PoemID), zap.Error(err))
		return Result{}, err
	}

	transientURL, err := s.generator.GenerateImage(ctx, prompt)
	if err != nil {
		s.logger.Error("image generation failed", zap.Uint("poem_id", req.PoemID), zap.Error(err))
		return Result{}, err
	}

	filename, err := s.fetcher.FetchAndStore(ctx, transientURL)
	if err != nil {
		s.logger.Error("image download failed", zap.Uint("poem_id", req.PoemID), zap.Error(err))
		return Result{}, err
	}

	imageID, err := s.store.InsertImage(ctx, req.PoemID, filename, req.VerseNumber, req.StanzaNumber, limit)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("image recorded",
		zap.Uint("poem_id", req.PoemID),
		zap.Uint("image_id", imageID),
		zap.Int("verse_number", req.VerseNumber),
		zap.Int("stanza_number", req.StanzaNumber),
		zap.Duration("elapsed", s.clock().Sub(startedAt)))

	return Result{
		PoemID:    req.PoemID,
		ImageID:   imageID,
		ImagePath: ImagePath(filename),
	}, nil
}

// ImagePath returns the public path for a stored image filename.
func ImagePath(filename string) string {
	return "storage/images/" + filename
}

func validateRequest(req Request) error {
	if strings.TrimSpace(req.Verse) == "" {
		return fmt.Errorf("%w: verse text is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Stanza) == "" {
		return fmt.Errorf("%w: stanza text is required", ErrInvalidRequest)
	}
	if req.PoemID == 0 {
		return fmt.Errorf("%w: poem_id is required", ErrInvalidRequest)
	}
	if req.VerseNumber < 0 {
		return fmt.Errorf("%w: verse_number must not be negative", ErrInvalidRequest)
	}
	if req.StanzaNumber < 0 {
		return fmt.Errorf("%w: stanza_number must not be negative", ErrInvalidRequest)
	}
	return nil
}
