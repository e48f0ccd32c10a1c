package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phambaophuc/alt-text-relay/internal/metrics"
)

const maxErrorBody = 512

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client // if nil uses http.DefaultClient
}

// RESTClient performs a single generateContent call per Generate.
type RESTClient struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	model      string
	timeout    time.Duration
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(opts Options) *RESTClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &RESTClient{
		httpClient: httpClient,
		apiKey:     opts.APIKey,
		endpoint: fmt.Sprintf("%s/%s/models/%s:generateContent",
			strings.TrimRight(opts.BaseURL, "/"), opts.APIVersion, opts.Model),
		model:   opts.Model,
		timeout: opts.Timeout,
	}
}

func (c *RESTClient) Generate(ctx context.Context, payload Payload) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := c.generate(ctx, payload)
	if err != nil {
		pe := newProviderError(err)
		metrics.ObserveProvider(c.model, string(pe.Kind), time.Since(start))
		return "", pe
	}

	metrics.ObserveProvider(c.model, "success", time.Since(start))
	return text, nil
}

func (c *RESTClient) generate(ctx context.Context, payload Payload) (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&payload); err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+url.QueryEscape(c.apiKey), buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("%w: %v", errDecode, err)
	}
	if gr.Error != nil {
		return "", &HTTPError{StatusCode: gr.Error.Code, Body: gr.Error.Message}
	}

	return gr.text(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
