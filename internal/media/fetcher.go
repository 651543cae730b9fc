// Package media downloads remote files to be sent as message attachments.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pscheid92/wagate/internal/adapter/metrics"
	"github.com/pscheid92/wagate/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/valyala/bytebufferpool"
)

// DefaultFilename is used when the source offers no usable filename.
const DefaultFilename = "Media"

var (
	ErrInvalidURL = errors.New("media url must be an absolute http or https url")
	ErrTooLarge   = errors.New("media exceeds the maximum allowed size")
)

// StatusError is returned for non-2xx responses from the media source.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("media source responded with status %d", e.StatusCode)
}

// Fetcher downloads media through a circuit breaker so a dead source fails fast.
type Fetcher struct {
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	maxBytes int64
	metrics  *metrics.MediaMetrics
}

func NewFetcher(timeout time.Duration, maxBytes int64, m *metrics.MediaMetrics) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		metrics:  m,
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "media-fetch",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			f.metrics.SetBreakerState(stateToFloat(to))
		},
	})
	return f
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

type download struct {
	media *domain.Media
	err   error // client-side rejection; does not count against the breaker
}

// Fetch downloads rawURL and returns it base64-encoded with its MIME type and filename.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.Media, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.download(ctx, u.String())
	})
	if err != nil {
		f.metrics.Fetch(0, err)
		return nil, err
	}

	d := result.(download)
	if d.err != nil {
		f.metrics.Fetch(0, d.err)
		return nil, d.err
	}
	f.metrics.Fetch(base64.StdEncoding.DecodedLen(len(d.media.Data)), nil)
	return d.media, nil
}

// download returns an error only for failures of the source itself (transport, 5xx).
func (f *Fetcher) download(ctx context.Context, rawURL string) (download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return download{err: fmt.Errorf("failed to build media request: %w", err)}, nil
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return download{}, fmt.Errorf("failed to fetch media: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return download{}, &StatusError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return download{err: &StatusError{StatusCode: resp.StatusCode}}, nil
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, f.maxBytes+1)); err != nil {
		return download{}, fmt.Errorf("failed to read media: %w", err)
	}
	if int64(buf.Len()) > f.maxBytes {
		return download{err: ErrTooLarge}, nil
	}

	return download{media: &domain.Media{
		MimeType: mimeType(resp.Header.Get("Content-Type"), buf.B),
		Filename: filename(resp.Header.Get("Content-Disposition")),
		Data:     base64.StdEncoding.EncodeToString(buf.B),
	}}, nil
}

func mimeType(header string, body []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && mt != "application/octet-stream" {
			return mt
		}
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(body))
	return mt
}

func filename(disposition string) string {
	if disposition == "" {
		return DefaultFilename
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return DefaultFilename
	}
	name := strings.TrimSpace(params["filename"])
	if name == "" || strings.Contains(strings.ToLower(name), "untitled") {
		return DefaultFilename
	}
	return name
}
