package enginehttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/slidescore-backend/internal/scoring"
)

const (
	defaultScorePath  = "/v1/score"
	defaultHealthPath = "/health"

	probeInterval = 5 * time.Second
	probeTimeout  = 2 * time.Second
)

// Engine delegates scoring to an upstream HTTP scorer. The request body is
// the working-resolution frame as PNG; the response is
// {"scores": [f0, f1, f2, f3]} with normalized values.
type Engine struct {
	baseURL string
	apiKey  string
	timeout time.Duration

	httpClient *http.Client

	probeMu  sync.Mutex
	probedAt time.Time
	probedOK bool
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) (*Engine, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("enginehttp: base url required")
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Engine{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
	}, nil
}

// NewWithHTTPClient is intended for tests; it avoids network access by using a custom RoundTripper.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) (*Engine, error) {
	e, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		e.httpClient = httpClient
	}
	return e, nil
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

func (e *Engine) Infer(ctx context.Context, img image.Image) ([scoring.NumDimensions]float64, error) {
	var out [scoring.NumDimensions]float64

	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return out, fmt.Errorf("enginehttp: encode frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+defaultScorePath, &body)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "image/png")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("enginehttp: upstream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return out, fmt.Errorf("enginehttp: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var parsed scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return out, fmt.Errorf("enginehttp: decode response: %w", err)
	}
	if len(parsed.Scores) != scoring.NumDimensions {
		return out, fmt.Errorf("enginehttp: expected %d scores, got %d", scoring.NumDimensions, len(parsed.Scores))
	}
	copy(out[:], parsed.Scores)
	return out, nil
}

// Ready probes the upstream health endpoint, caching the result briefly so
// per-request availability checks stay cheap.
func (e *Engine) Ready() bool {
	e.probeMu.Lock()
	defer e.probeMu.Unlock()

	if time.Since(e.probedAt) < probeInterval {
		return e.probedOK
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	e.probedAt = time.Now()
	e.probedOK = false

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+defaultHealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))

	e.probedOK = resp.StatusCode == http.StatusOK
	return e.probedOK
}
