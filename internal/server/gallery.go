package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/rhymist/internal/generation"
	"github.com/MarcoPoloResearchLab/rhymist/internal/poems"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type galleryImagePayload struct {
	VerseNumber int    `json:"verse_number"`
	Caption     string `json:"caption"`
	ImagePath   string `json:"image_path"`
}

type galleryStanzaPayload struct {
	StanzaNumber int                   `json:"stanza_number"`
	Images       []galleryImagePayload `json:"images"`
}

type galleryResponsePayload struct {
	Success     bool                   `json:"success"`
	PoemID      uint                   `json:"poem_id"`
	Poem        string                 `json:"poem"`
	WordCount   int                    `json:"word_count"`
	VerseCount  int                    `json:"verse_count"`
	StanzaCount int                    `json:"stanza_count"`
	Stanzas     []galleryStanzaPayload `json:"stanzas"`
}

// handleGallery returns the browsable view of a poem: its text, counts,
// and generated images grouped by stanza in (stanza, verse) order with
// cheat-sheet captions.
func (h *httpHandler) handleGallery(c *gin.Context) {
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
		h.logger.Error("failed to load poem for gallery", zap.Uint("poem_id", poemID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load gallery."})
		return
	}

	images, err := h.poems.ListImages(c.Request.Context(), poemID)
	if err != nil {
		h.logger.Error("failed to list images for gallery", zap.Uint("poem_id", poemID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load gallery."})
		return
	}

	stanzaTexts := poems.SplitStanzas(poem.Content)
	stanzas := groupImagesByStanza(images, stanzaTexts)

	c.JSON(http.StatusOK, galleryResponsePayload{
		Success:     true,
		PoemID:      poem.ID,
		Poem:        poem.Content,
		WordCount:   poems.CountWords(poem.Content),
		VerseCount:  poems.CountVerses(poem.Content),
		StanzaCount: len(stanzas),
		Stanzas:     stanzas,
	})
}

// groupImagesByStanza buckets images by stanza number, preserving the
// (stanza, verse) query order. Captions come from the poem text when the
// positional indices still resolve to a verse.
func groupImagesByStanza(images []poems.Image, stanzaTexts [][]string) []galleryStanzaPayload {
	stanzas := make([]galleryStanzaPayload, 0)
	for _, image := range images {
		entry := galleryImagePayload{
			VerseNumber: image.VerseNumber,
			Caption:     captionFor(stanzaTexts, image.StanzaNumber, image.VerseNumber),
			ImagePath:   generation.ImagePath(image.Filename),
		}
		if n := len(stanzas); n > 0 && stanzas[n-1].StanzaNumber == image.StanzaNumber {
			stanzas[n-1].Images = append(stanzas[n-1].Images, entry)
			continue
		}
		stanzas = append(stanzas, galleryStanzaPayload{
			StanzaNumber: image.StanzaNumber,
			Images:       []galleryImagePayload{entry},
		})
	}
	return stanzas
}

func captionFor(stanzaTexts [][]string, stanzaNumber, verseNumber int) string {
	if stanzaNumber < 0 || stanzaNumber >= len(stanzaTexts) {
		return ""
	}
	verses := stanzaTexts[stanzaNumber]
	if verseNumber < 0 || verseNumber >= len(verses) {
		return ""
	}
	return poems.VerseCaption(verses[verseNumber])
}
