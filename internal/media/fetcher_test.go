package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func serve(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFetch_Document(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="invoice-42.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	})

	m, err := NewFetcher(5*time.Second, 1<<20, nil).Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", m.MimeType)
	assert.Equal(t, "invoice-42.pdf", m.Filename)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 fake")), m.Data)
	assert.True(t, m.IsDocument())
}

func TestFetch_SniffsMissingContentType(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write(pngHeader)
	})

	m, err := NewFetcher(5*time.Second, 1<<20, nil).Fetch(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "image/png", m.MimeType)
	assert.Equal(t, DefaultFilename, m.Filename)
	assert.False(t, m.IsDocument())
}

func TestFetch_TooLarge(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	})

	_, err := NewFetcher(5*time.Second, 1024, nil).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetch_InvalidURL(t *testing.T) {
	f := NewFetcher(5*time.Second, 1024, nil)

	for _, raw := range []string{"", "not a url", "ftp://example.com/file", "/relative/path"} {
		_, err := f.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestFetch_ClientErrorsDoNotTripBreaker(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	f := NewFetcher(5*time.Second, 1024, nil)

	for i := 0; i < 10; i++ {
		_, err := f.Fetch(context.Background(), url)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, f.breaker.State())
}

func TestFetch_ServerErrorsTripBreaker(t *testing.T) {
	var calls atomic.Int32
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	f := NewFetcher(5*time.Second, 1024, nil)

	for i := 0; i < 5; i++ {
		_, err := f.Fetch(context.Background(), url)
		require.Error(t, err)
	}
	require.Equal(t, gobreaker.StateOpen, f.breaker.State())

	_, err := f.Fetch(context.Background(), url)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load())
}

func TestFetch_Timeout(t *testing.T) {
	url := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})

	_, err := NewFetcher(50*time.Millisecond, 1024, nil).Fetch(context.Background(), url)
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", DefaultFilename},
		{`attachment; filename="report.xlsx"`, "report.xlsx"},
		{`inline; filename=photo.jpg`, "photo.jpg"},
		{`attachment; filename="Untitled document.pdf"`, DefaultFilename},
		{`attachment`, DefaultFilename},
		{`;;garbage`, DefaultFilename},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, filename(tt.header))
		})
	}
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "video/mp4", mimeType("video/mp4", nil))
	assert.Equal(t, "text/plain", mimeType("text/plain; charset=utf-8", nil))
	assert.Equal(t, "image/png", mimeType("application/octet-stream", pngHeader))
	assert.Equal(t, "image/png", mimeType("", pngHeader))
}
