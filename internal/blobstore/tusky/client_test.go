package tusky

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL, vaultID string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, APIKey: "test-key", VaultID: vaultID}, zap.NewNop())
	require.NoError(t, err)
	c.retryDelay = time.Millisecond
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestEnsureVault_CreatesOnce(t *testing.T) {
	var creates atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Api-Key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/vaults":
			creates.Add(1)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"id": "v-1", "name": "Datasets Vault"})
		case r.Method == http.MethodGet && r.URL.Path == "/vaults/v-1":
			json.NewEncoder(w).Encode(map[string]any{"id": "v-1", "name": "Datasets Vault"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "")
	ctx := context.Background()

	id, err := c.EnsureVault(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v-1", id)

	// Second call reuses the cached vault id but still verifies it exists;
	// no second create.
	_, _ = c.EnsureVault(ctx)
	assert.Equal(t, int32(1), creates.Load())
}

func TestUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/uploads":
			assert.Equal(t, "1.0.0", r.Header.Get("Tus-Resumable"))
			assert.Equal(t, "11", r.Header.Get("Upload-Length"))
			assert.Contains(t, r.Header.Get("Upload-Metadata"), "vaultId ")
			w.Header().Set("Location", "/uploads/u-77")
			w.WriteHeader(http.StatusCreated)
		case "/vaults/v-1":
			json.NewEncoder(w).Encode(map[string]any{"id": "v-1"})
		case "/files/u-77":
			json.NewEncoder(w).Encode(map[string]any{
				"id": "u-77", "name": "iris.csv", "size": 11,
				"blobId": "blob-1", "blobObjectId": "0xb10b", "vaultId": "v-1",
			})
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "iris.csv")
	require.NoError(t, os.WriteFile(path, []byte("hello,world"), 0o644))

	c := newTestClient(t, server.URL, "v-1")
	info, err := c.Upload(context.Background(), path, "iris.csv")
	require.NoError(t, err)
	assert.Equal(t, "u-77", info.ID)
	assert.Equal(t, "0xb10b", info.BlobObjectID)
	assert.Equal(t, int64(11), info.Size)
}

func TestDownload_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("csv-bytes"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "v-1")
	data, err := c.Download(context.Background(), "u-77")
	require.NoError(t, err)
	assert.Equal(t, "csv-bytes", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_PermanentErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, "v-1")
	_, err := c.Download(context.Background(), "u-77")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
