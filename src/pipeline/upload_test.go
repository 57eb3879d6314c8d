package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestAsset(t *testing.T) Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg-bytes"), 0o644))
	return Asset{URI: path, Width: 800, Height: 600, MimeType: "image/jpeg", FileName: "capture.jpg"}
}

func uploadKind(t *testing.T, err error) FailureKind {
	t.Helper()
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	return uploadErr.Kind
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotField, gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			file, header, err := r.FormFile(fileField)
			require.NoError(t, err)
			defer file.Close()
			gotField = header.Filename
			gotContentType = header.Header.Get("Content-Type")
			w.Write([]byte(`{"json": [{"name": "Apple", "kcal": 52, "protein": 0.3, "carbs": 14, "fats": 0.2}]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Minute)
		items, err := client.Submit(ctx, writeTestAsset(t), SubmitOptions{})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Apple", items[0].Name)
		assert.InDelta(t, 52, items[0].Kcal, 0.001)
		assert.Equal(t, "capture.jpg", gotField)
		assert.Equal(t, "image/jpeg", gotContentType)
	})

	t.Run("EmptyArrayIsValid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"json": []}`))
		}))
		defer server.Close()

		items, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("PayloadTooLarge", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		assert.Equal(t, PayloadTooLarge, uploadKind(t, err))
		var uploadErr *UploadError
		require.ErrorAs(t, err, &uploadErr)
		assert.True(t, uploadErr.Retryable())
	})

	t.Run("ServerTimeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGatewayTimeout)
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		assert.Equal(t, ServerTimeout, uploadKind(t, err))
	})

	t.Run("ServerRejectedCarriesDetail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail": "unsupported image format"}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		var uploadErr *UploadError
		require.ErrorAs(t, err, &uploadErr)
		assert.Equal(t, ServerRejected, uploadErr.Kind)
		assert.Equal(t, "unsupported image format", uploadErr.Detail)
		assert.Contains(t, uploadErr.Error(), "unsupported image format")
		assert.False(t, uploadErr.Retryable())
	})

	t.Run("MissingFieldIsInvalidShape", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"results": []}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		assert.Equal(t, InvalidResponseShape, uploadKind(t, err))
	})

	t.Run("NullFieldIsInvalidShape", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"json": null}`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		assert.Equal(t, InvalidResponseShape, uploadKind(t, err))
	})

	t.Run("NonJSONBodyIsInvalidShape", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>gateway page</html>`))
		}))
		defer server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		assert.Equal(t, InvalidResponseShape, uploadKind(t, err))
	})

	t.Run("ClientTimeoutCancelsRequest", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		start := time.Now()
		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{Timeout: 50 * time.Millisecond})
		assert.Equal(t, ClientTimeout, uploadKind(t, err))
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("UnreachableHostIsNetworkUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := NewClient(server.URL, time.Minute).Submit(ctx, writeTestAsset(t), SubmitOptions{})
		assert.Equal(t, NetworkUnavailable, uploadKind(t, err))
	})

	t.Run("MissingLocalFile", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:0", time.Minute).Submit(ctx, Asset{URI: "/nonexistent.jpg"}, SubmitOptions{})
		assert.Error(t, err)
		var uploadErr *UploadError
		assert.False(t, errors.As(err, &uploadErr))
	})
}
