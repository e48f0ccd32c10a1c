// Package fetcher downloads image bytes for vision prompts. It is best effort:
// callers fall back to text-only prompts on any error.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/phambaophuc/alt-text-relay/pkg/utils"
)

const maxRedirects = 3

var ErrFetch = errors.New("image fetch failed")

// FetchError wraps the reason an image could not be retrieved.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetch, e.Err} }

type Image struct {
	Data     []byte
	MimeType string
}

type Options struct {
	Timeout   time.Duration
	MaxSize   int64
	UserAgent string
	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
}

type Fetcher struct {
	client    *http.Client
	maxSize   int64
	userAgent string
}

func New(opts Options) *Fetcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		}
	}

	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}

	return &Fetcher{client: client, maxSize: maxSize, userAgent: opts.UserAgent}
}

// Fetch downloads imageURL. It never retries.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: imageURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: imageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: imageURL, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if resp.ContentLength > f.maxSize {
		return nil, &FetchError{URL: imageURL, Err: fmt.Errorf("image exceeds %d bytes", f.maxSize)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, &FetchError{URL: imageURL, Err: fmt.Errorf("failed to read image data: %w", err)}
	}
	if int64(len(data)) > f.maxSize {
		return nil, &FetchError{URL: imageURL, Err: fmt.Errorf("image exceeds %d bytes", f.maxSize)}
	}
	if len(data) == 0 {
		return nil, &FetchError{URL: imageURL, Err: errors.New("empty image data")}
	}

	return &Image{Data: data, MimeType: detectMimeType(resp.Header.Get("Content-Type"), data)}, nil
}

// detectMimeType prefers the origin's image content type and sniffs the bytes
// otherwise.
func detectMimeType(header string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && utils.IsImageType(mediaType) {
		return mediaType
	}
	return mimetype.Detect(data).String()
}
