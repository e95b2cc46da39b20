package gate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// SecretSource fetches an opaque secret payload by reference.
type SecretSource interface {
	FetchSecretPayload(ctx context.Context, ref string) ([]byte, error)
}

// leveledSlog adapts slog for retryablehttp. Client ERROR is re-written
// to WARN level, because failed attempts are retried.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

// HTTPSecretSource reads secret payloads from a vault-style HTTP secret
// store, with bounded retries on transient failures.
type HTTPSecretSource struct {
	client  *http.Client
	baseURL string
	token   string
}

var _ SecretSource = (*HTTPSecretSource)(nil)

func NewHTTPSecretSource(baseURL, token string, logger *slog.Logger) *HTTPSecretSource {
	if logger == nil {
		logger = slog.Default()
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultClient()
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.RetryMax = 3
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger.With("system", "secrets")})
	return &HTTPSecretSource{
		client:  rc.StandardClient(),
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
	}
}

func (s *HTTPSecretSource) FetchSecretPayload(ctx context.Context, ref string) ([]byte, error) {
	u := s.baseURL + "/v1/secrets/" + url.PathEscape(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("secret store request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("secret store returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
