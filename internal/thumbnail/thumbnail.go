// Package thumbnail downsizes meal pictures served by TheMealDB.
package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nfnt/resize"
)

const (
	MinWidth     = 32
	MaxWidth     = 800
	DefaultWidth = 240

	maxSourceBytes = 10 << 20
	maxRedirects   = 5
)

var (
	// ErrInvalidSource is returned when the source is not an absolute http(s) URL.
	ErrInvalidSource = errors.New("invalid thumbnail source")
	// ErrHostNotAllowed is returned when the source host is not allow-listed.
	ErrHostNotAllowed = errors.New("thumbnail host not allowed")
)

// Resizer fetches remote images and scales them to a width.
type Resizer struct {
	httpClient   *http.Client
	allowed      map[string]bool
	defaultWidth int
}

// NewResizer creates a Resizer accepting images from allowedHosts only.
func NewResizer(allowedHosts []string, defaultWidth int, timeout time.Duration) *Resizer {
	allowed := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		allowed[strings.ToLower(h)] = true
	}
	if defaultWidth == 0 {
		defaultWidth = DefaultWidth
	}
	r := &Resizer{
		allowed:      allowed,
		defaultWidth: ClampWidth(defaultWidth),
	}
	r.httpClient = &http.Client{Timeout: timeout, CheckRedirect: r.checkRedirect}
	return r
}

// checkRedirect applies the host allow list to every redirect hop.
func (r *Resizer) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	_, err := r.Validate(req.URL.String())
	return err
}

// ClampWidth bounds width to [MinWidth, MaxWidth].
func ClampWidth(width int) int {
	if width < MinWidth {
		return MinWidth
	}
	if width > MaxWidth {
		return MaxWidth
	}
	return width
}

// DefaultWidth returns the width used when the caller does not ask for one.
func (r *Resizer) DefaultWidth() int {
	return r.defaultWidth
}

// Validate checks that src points at an allowed host.
func (r *Resizer) Validate(src string) (*url.URL, error) {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidSource
	}
	if !r.allowed[strings.ToLower(u.Hostname())] {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return u, nil
}

// Thumbnail downloads src and returns it as a JPEG width pixels wide.
func (r *Resizer) Thumbnail(ctx context.Context, src string, width int) ([]byte, error) {
	u, err := r.Validate(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-OK status code: %d", resp.StatusCode)
	}

	return Resize(io.LimitReader(resp.Body, maxSourceBytes), width)
}

// Resize decodes a JPEG or PNG image and re-encodes it as a JPEG width pixels wide.
func Resize(src io.Reader, width int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = resize.Resize(uint(ClampWidth(width)), 0, img, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return out.Bytes(), nil
}
