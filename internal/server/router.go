package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/rhymist/internal/generation"
	"github.com/MarcoPoloResearchLab/rhymist/internal/poems"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingPoemService       = errors.New("poem service dependency required")
	errMissingGenerationService = errors.New("generation service dependency required")
	errMissingPaymentIntents    = errors.New("payment intents dependency required")
)

// PaymentIntents creates payment intents for the hosted checkout flow.
type PaymentIntents interface {
	CreateIntent(ctx context.Context) (string, error)
}

// Dependencies wires the HTTP surface to its collaborating services.
type Dependencies struct {
	Poems      *poems.Service
	Generation *generation.Service
	Payments   PaymentIntents
	ImagesDir  string
	Logger     *zap.Logger
}

// NewHTTPHandler builds the gin router serving the poem and image API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Poems == nil {
		return nil, errMissingPoemService
	}
	if deps.Generation == nil {
		return nil, errMissingGenerationService
	}
	if deps.Payments == nil {
		return nil, errMissingPaymentIntents
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed."})
	})

	handler := &httpHandler{
		poems:      deps.Poems,
		generation: deps.Generation,
		payments:   deps.Payments,
		logger:     logger,
	}

	api := router.Group("/api")
	api.POST("/poems", handler.handleCreatePoem)
	api.GET("/poems", handler.handleGetPoem)
	api.POST("/images", handler.handleRequestImage)
	api.POST("/payments", handler.handleCreatePayment)
	api.GET("/gallery", handler.handleGallery)

	if deps.ImagesDir != "" {
		router.Static("/storage/images", deps.ImagesDir)
	}

	return router, nil
}

type httpHandler struct {
	poems      *poems.Service
	generation *generation.Service
	payments   PaymentIntents
	logger     *zap.Logger
}

type createPoemPayload struct {
	Content          string  `json:"content"`
	PaymentReference *string `json:"payment_reference"`
}

func (h *httpHandler) handleCreatePoem(c *gin.Context) {
	var request createPoemPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Poem content is required."})
		return
	}

	poemID, err := h.poems.CreatePoem(c.Request.Context(), request.Content, request.PaymentReference)
	if err != nil {
		if errors.Is(err, poems.ErrEmptyContent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Poem content is required."})
			return
		}
		h.logger.Error("failed to create poem",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store poem."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "poem_id": poemID})
}

type poemResponsePayload struct {
	Success     bool   `json:"success"`
	PoemID      uint   `json:"poem_id"`
	Poem        string `json:"poem"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	ImageCount  int64  `json:"image_count"`
	TotalVerses int    `json:"total_verses"`
}

func (h *httpHandler) handleGetPoem(c *gin.Context) {
	poemID, ok := parsePoemID(c)
	if !ok {
		return
	}

	poem, err := h.poems.GetPoem(c.Request.Context(), poemID)
	if err != nil {
		if errors.Is(err, poems.ErrPoemNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poem not found."})
			return
		}
		h.logger.Error("failed to load poem", zap.Uint("poem_id", poemID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load poem."})
		return
	}

	imageCount, err := h.poems.CountImages(c.Request.Context(), poemID)
	if err != nil {
		h.logger.Error("failed to count images", zap.Uint("poem_id", poemID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load poem."})
		return
	}

	c.JSON(http.StatusOK, poemResponsePayload{
		Success:     true,
		PoemID:      poem.ID,
		Poem:        poem.Content,
		CreatedAt:   poem.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   poem.UpdatedAt.UTC().Format(time.RFC3339),
		ImageCount:  imageCount,
		TotalVerses: poems.CountVerses(poem.Content),
	})
}

type requestImagePayload struct {
	Verse           string `json:"verse"`
	Stanza          string `json:"stanza"`
	PoemID          *uint  `json:"poem_id"`
	VerseNumber     *int   `json:"verse_number"`
	StanzaNumber    *int   `json:"stanza_number"`
	PaymentIntentID string `json:"payment_intent_id"`
	AdminPassphrase string `json:"admin_passphrase"`
}

func (h *httpHandler) handleRequestImage(c *gin.Context) {
	var request requestImagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload."})
		return
	}
	if request.PoemID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "poem_id is required. Use API to receive poem_id."})
		return
	}
	if request.VerseNumber == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verse_number is required and must be a valid number."})
		return
	}
	if request.StanzaNumber == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stanza_number is required."})
		return
	}

	result, err := h.generation.RequestImage(c.Request.Context(), generation.Request{
		PoemID:          *request.PoemID,
		Verse:           request.Verse,
		Stanza:          request.Stanza,
		VerseNumber:     *request.VerseNumber,
		StanzaNumber:    *request.StanzaNumber,
		AdminPassphrase: request.AdminPassphrase,
		PaymentIntentID: request.PaymentIntentID,
	})
	if err != nil {
		h.respondRequestImageError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"poem_id":    result.PoemID,
		"image_path": result.ImagePath,
	})
}

func (h *httpHandler) respondRequestImageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, generation.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, generation.ErrPaymentVerification):
		c.JSON(http.StatusForbidden, gin.H{"error": "Payment verification failed."})
	case errors.Is(err, poems.ErrQuotaExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Maximum number of images per poem reached."})
	case errors.Is(err, poems.ErrPoemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Poem not found."})
	default:
		h.logger.Error("image request failed",
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Image generation failed."})
	}
}

func (h *httpHandler) handleCreatePayment(c *gin.Context) {
	clientSecret, err := h.payments.CreateIntent(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to create payment intent", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"clientSecret": clientSecret})
}

func parsePoemID(c *gin.Context) (uint, bool) {
	raw := c.Query("poem_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Poem ID is required."})
		return 0, false
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || parsed == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Poem ID must be a valid number."})
		return 0, false
	}
	return uint(parsed), true
}
