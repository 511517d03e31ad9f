// Package imagefetch retrieves card images from the image host or a local directory.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnavailable is returned for any locator that cannot be turned into image bytes
var ErrUnavailable = errors.New("image unavailable")

// maxImageSize caps downloads above Telegram's photo upload limit
const maxImageSize = 20 << 20

// Fetcher downloads images over HTTP with an optional bearer token.
// Locators without an http(s) scheme are read relative to BaseDir.
type Fetcher struct {
	client  *http.Client
	token   string
	baseDir string
}

func New(token, baseDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		token:   token,
		baseDir: baseDir,
	}
}

// Fetch returns the image bytes behind locator. Every failure wraps ErrUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrUnavailable)
	}
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return f.download(ctx, locator)
	}
	return f.readLocal(locator)
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3.raw")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrUnavailable, url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if len(data) > maxImageSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrUnavailable, url, maxImageSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s returned an empty body", ErrUnavailable, url)
	}
	return data, nil
}

func (f *Fetcher) readLocal(locator string) ([]byte, error) {
	path := filepath.Clean(locator)
	if !filepath.IsAbs(path) {
		if strings.HasPrefix(path, "..") {
			return nil, fmt.Errorf("%w: %q escapes the image directory", ErrUnavailable, locator)
		}
		path = filepath.Join(f.baseDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrUnavailable, path)
	}
	return data, nil
}
