package images

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	fileExtension  = ".png"
)

// Fetcher downloads transient image URLs and persists them under a content
// directory. Files are named by the md5 of the source URL's basename.
type Fetcher struct {
	HTTPClient *http.Client
	Dir        string
}

// NewFetcher creates a fetcher writing into dir.
func NewFetcher(dir string) *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		Dir:        dir,
	}
}

// FetchAndStore downloads the image at the transient URL and writes it to
// the content directory, creating the directory on first use. It returns
// the bare filename of the stored image.
func (f *Fetcher) FetchAndStore(ctx context.Context, transientURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, transientURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}

	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	filename := Filename(transientURL)
	if err := os.WriteFile(filepath.Join(f.Dir, filename), imageData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return filename, nil
}

// Filename derives the stored file name for a transient URL: the md5 hex
// digest of the URL path's basename plus the fixed image extension.
func Filename(transientURL string) string {
	basename := path.Base(transientURL)
	if parsed, err := url.Parse(transientURL); err == nil && parsed.Path != "" {
		basename = path.Base(parsed.Path)
	}
	return fmt.Sprintf("%x%s", md5.Sum([]byte(basename)), fileExtension)
}
