// Package provider holds the HTTP plumbing shared by the market data clients:
// credential checks, request throttling, JSON decoding and extraction of the
// providers' error envelopes.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/rrebane/market-data-loader/internal/apperrors"
	"github.com/rrebane/market-data-loader/internal/config"
	"github.com/rrebane/market-data-loader/internal/metrics"
)

// DefaultTimeout bounds a single provider round trip.
const DefaultTimeout = 30 * time.Second

// Requester issues authenticated GET requests against one provider.
// Every request waits on the limiter before it is sent.
type Requester struct {
	name       string
	baseURL    string
	accessKey  string
	keyEnv     string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// NewRequester creates a Requester for the provider described by cfg.
// A non-positive RequestsPerSecond disables throttling.
func NewRequester(name string, cfg config.ProviderConfig, log logrus.FieldLogger) *Requester {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Requester{
		name:       name,
		baseURL:    cfg.BaseURL,
		accessKey:  cfg.AccessKey,
		keyEnv:     cfg.AccessKeyEnv,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.WithField("provider", name),
	}
}

// CheckAccessKey fails with apperrors.ErrMissingAccessKey when no credential
// is configured.
func (r *Requester) CheckAccessKey() error {
	if r.accessKey == "" {
		return fmt.Errorf("%s %w", r.keyEnv, apperrors.ErrMissingAccessKey)
	}
	return nil
}

// Get requests path with params plus the access key and decodes the JSON body
// into out. Non-2xx responses are reported as "<errPrefix>: <error.message>",
// or just errPrefix when the body carries no such field, wrapping
// apperrors.ErrProviderRequest.
func (r *Requester) Get(ctx context.Context, path string, params url.Values, errPrefix string, out any) (err error) {
	if err := r.CheckAccessKey(); err != nil {
		return err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrProviderRequest, errPrefix, err)
	}

	start := time.Now()
	defer func() {
		metrics.RecordProviderRequest(r.name, err, time.Since(start))
	}()

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("access_key", r.accessKey)

	endpoint := r.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrProviderRequest, errPrefix, err)
	}
	req.Header.Set("Accept", "application/json")

	r.log.WithField("path", path).Debug("Sending provider request")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrProviderRequest, errPrefix, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrProviderRequest, errPrefix, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.log.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
		}).Warn("Provider rejected request")
		return &RequestError{
			Message:    ErrorMessage(errPrefix, data),
			StatusCode: resp.StatusCode,
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: invalid response body: %v", apperrors.ErrProviderRequest, errPrefix, err)
	}
	return nil
}

// ErrorMessage renders a provider error body as "<prefix>: <error.message>".
// Bodies that are not JSON or lack a string error.message yield just prefix.
func ErrorMessage(prefix string, body []byte) string {
	if !gjson.ValidBytes(body) {
		return prefix
	}
	msg := gjson.GetBytes(body, "error.message")
	if msg.Type != gjson.String {
		return prefix
	}
	return prefix + ": " + msg.String()
}

// RequestError is a provider-reported rejection.
type RequestError struct {
	Message    string
	StatusCode int
}

func (e *RequestError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match apperrors.ErrProviderRequest.
func (e *RequestError) Unwrap() error {
	return apperrors.ErrProviderRequest
}
