package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("serves a stored file", func(t *testing.T) {
		s := newTestServer(t)
		_, err := s.uploader.Upload(ctx, "1700000000000-abc.png", "image/png", bytes.NewReader([]byte("png bytes")))
		require.NoError(t, err)

		rec := s.do(httptest.NewRequest(http.MethodGet, "/uploads/1700000000000-abc.png", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "png bytes", rec.Body.String())
	})

	t.Run("missing file", func(t *testing.T) {
		s := newTestServer(t)

		rec := s.do(httptest.NewRequest(http.MethodGet, "/uploads/nope.png", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("traversal is rejected", func(t *testing.T) {
		s := newTestServer(t)

		for _, path := range []string{"/uploads/a..png", "/uploads/a%5Cb.png", "/uploads/a%2Fb.png"} {
			rec := s.do(httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusNotFound, rec.Code, path)
		}
	})
}

func TestGetRoot(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Backend is running!", rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/nothing-here", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
