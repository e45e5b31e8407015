package poems

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrEmptyContent indicates a poem upload with no usable text.
	ErrEmptyContent = errors.New("poems: poem content is empty")
	// ErrPoemNotFound indicates the requested poem does not exist.
	ErrPoemNotFound = errors.New("poems: poem not found")
	// ErrQuotaExceeded indicates the per-poem image ceiling has been reached.
	ErrQuotaExceeded = errors.New("poems: image quota exceeded")

	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries an operation.reason code alongside the causal error.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation.reason identifier for the failure.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew  = "poems.service.new"
	opCreatePoem  = "poems.create_poem"
	opGetPoem     = "poems.get_poem"
	opCountImages = "poems.count_images"
	opInsertImage = "poems.insert_image"
	opListImages  = "poems.list_images"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig bundles the dependencies of the poem store service.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service persists poems and their generated images.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewService constructs the poem store service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
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
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}, nil
}

// CreatePoem stores a new poem and returns its assigned identifier.
// Whitespace-only content is rejected without writing a row.
func (s *Service) CreatePoem(ctx context.Context, content string, paymentReference *string) (uint, error) {
	if strings.TrimSpace(content) == "" {
		return 0, newServiceError(opCreatePoem, "empty_content", ErrEmptyContent)
	}

	now := s.clock().UTC()
	poem := Poem{
		Content:          content,
		PaymentReference: paymentReference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.db.WithContext(ctx).Create(&poem).Error; err != nil {
		s.logError(opCreatePoem, "insert_failed", err)
		return 0, newServiceError(opCreatePoem, "insert_failed", err)
	}

	return poem.ID, nil
}

// GetPoem returns the stored poem for the given identifier.
func (s *Service) GetPoem(ctx context.Context, poemID uint) (Poem, error) {
	var poem Poem
	err := s.db.WithContext(ctx).Where("id = ?", poemID).Take(&poem).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Poem{}, newServiceError(opGetPoem, "not_found", ErrPoemNotFound)
	}
	if err != nil {
		s.logError(opGetPoem, "query_failed", err, zap.Uint("poem_id", poemID))
		return Poem{}, newServiceError(opGetPoem, "query_failed", err)
	}
	return poem, nil
}

// CountImages returns the number of images recorded for the poem.
func (s *Service) CountImages(ctx context.Context, poemID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&Image{}).
		Where("poem_id = ?", poemID).
		Count(&count).Error
	if err != nil {
		s.logError(opCountImages, "query_failed", err, zap.Uint("poem_id", poemID))
		return 0, newServiceError(opCountImages, "query_failed", err)
	}
	return count, nil
}

// InsertImage records a generated image for the poem, enforcing the image
// ceiling inside a single transaction so concurrent requests cannot push
// the count past the limit.
func (s *Service) InsertImage(ctx context.Context, poemID uint, filename string, verseNumber, stanzaNumber int, limit int64) (uint, error) {
	now := s.clock().UTC()
	image := Image{
		PoemID:       poemID,
		Filename:     filename,
		VerseNumber:  verseNumber,
		StanzaNumber: stanzaNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poem Poem
		err := tx.Where("id = ?", poemID).Take(&poem).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opInsertImage, "poem_not_found", ErrPoemNotFound)
		}
		if err != nil {
			return newServiceError(opInsertImage, "poem_select_failed", err)
		}

		var count int64
		if err := tx.Model(&Image{}).Where("poem_id = ?", poemID).Count(&count).Error; err != nil {
			return newServiceError(opInsertImage, "count_failed", err)
		}
		if count >= limit {
			return newServiceError(opInsertImage, "quota_exceeded", ErrQuotaExceeded)
		}

		if err := tx.Omit("Poem").Create(&image).Error; err != nil {
			return newServiceError(opInsertImage, "insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		if !errors.Is(txErr, ErrQuotaExceeded) && !errors.Is(txErr, ErrPoemNotFound) {
			s.logError(opInsertImage, "transaction_failed", txErr, zap.Uint("poem_id", poemID))
		}
		return 0, txErr
	}

	return image.ID, nil
}

// ListImages returns the poem's images ordered by stanza then verse, the
// order the gallery renders them in.
func (s *Service) ListImages(ctx context.Context, poemID uint) ([]Image, error) {
	var images []Image
	err := s.db.WithContext(ctx).
		Where("poem_id = ?", poemID).
		Order("stanza_number ASC, verse_number ASC").
		Find(&images).Error
	if err != nil {
		s.logError(opListImages, "query_failed", err, zap.Uint("poem_id", poemID))
		return nil, newServiceError(opListImages, "query_failed", err)
	}
	return images, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("poem store error", attrs...)
}
