// internal/blobstore/tusky/client.go
package tusky

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/dataforge-labs/dataforge/internal/blobstore"
)

const (
	DefaultBaseURL = "https://api.tusky.io"

	tusVersion     = "1.0.0"
	requestTimeout = 60 * time.Second

	defaultRetryDelay = 2 * time.Second
	defaultMaxTries   = 4
)

// Client talks to the Tusky storage API. Uploads use the TUS
// creation-with-upload flow in a single request; datasets are small enough
// that resumable chunking is not worth carrying.
type Client struct {
	baseURL    string
	apiKey     string
	vaultName  string
	encrypted  bool
	httpClient *http.Client
	logger     *zap.Logger
	retryDelay time.Duration
	maxTries   uint

	mu      sync.Mutex
	vaultID string
}

// Config for the Tusky client. VaultID may be empty; EnsureVault then
// creates a vault named VaultName on first use.
type Config struct {
	BaseURL   string
	APIKey    string
	VaultID   string
	VaultName string
	Encrypted bool
}

// New creates a Tusky client. The API key is required.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tusky api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.VaultName == "" {
		cfg.VaultName = "Datasets Vault"
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		vaultName:  cfg.VaultName,
		encrypted:  cfg.Encrypted,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.Named("tusky"),
		retryDelay: defaultRetryDelay,
		maxTries:   defaultMaxTries,
		vaultID:    cfg.VaultID,
	}, nil
}

type vault struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Encrypted bool   `json:"encrypted"`
}

type fileMeta struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	BlobID       string `json:"blobId"`
	BlobObjectID string `json:"blobObjectId"`
	VaultID      string `json:"vaultId"`
}

// EnsureVault implements blobstore.BlobStore.
func (c *Client) EnsureVault(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vaultID != "" {
		var v vault
		if err := c.doJSON(ctx, http.MethodGet, "/vaults/"+c.vaultID, nil, &v); err != nil {
			return "", fmt.Errorf("failed to resolve vault %s: %w", c.vaultID, err)
		}
		return c.vaultID, nil
	}

	body, err := json.Marshal(map[string]any{
		"name":      c.vaultName,
		"encrypted": c.encrypted,
	})
	if err != nil {
		return "", err
	}
	var created vault
	if err := c.doJSON(ctx, http.MethodPost, "/vaults", body, &created); err != nil {
		return "", fmt.Errorf("failed to create vault: %w", err)
	}
	c.vaultID = created.ID
	c.logger.Info("Created storage vault",
		zap.String("vault_id", created.ID),
		zap.Bool("encrypted", created.Encrypted))
	return c.vaultID, nil
}

// Upload implements blobstore.BlobStore.
func (c *Client) Upload(ctx context.Context, filePath, name string) (*blobstore.FileInfo, error) {
	vaultID, err := c.EnsureVault(ctx)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Tus-Resumable", tusVersion)
	req.Header.Set("Content-Type", "application/offset+octet-stream")
	req.Header.Set("Upload-Length", strconv.Itoa(len(data)))
	req.Header.Set("Upload-Metadata", tusMetadata(map[string]string{
		"vaultId":  vaultID,
		"filename": name,
	}))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload returned HTTP %d: %s", resp.StatusCode, string(detail))
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, fmt.Errorf("upload response is missing the Location header")
	}
	uploadID := path.Base(location)

	c.logger.Info("Uploaded file",
		zap.String("file_id", uploadID),
		zap.String("vault_id", vaultID),
		zap.Int("size", len(data)))

	return c.FileMeta(ctx, uploadID)
}

// Download implements blobstore.BlobStore.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	return c.get(ctx, "/files/"+fileID+"/data")
}

// FileMeta implements blobstore.BlobStore.
func (c *Client) FileMeta(ctx context.Context, fileID string) (*blobstore.FileInfo, error) {
	var meta fileMeta
	if err := c.doJSON(ctx, http.MethodGet, "/files/"+fileID, nil, &meta); err != nil {
		return nil, fmt.Errorf("failed to fetch file metadata: %w", err)
	}
	return &blobstore.FileInfo{
		ID:           meta.ID,
		Name:         meta.Name,
		Size:         meta.Size,
		BlobID:       meta.BlobID,
		BlobObjectID: meta.BlobObjectID,
		VaultID:      meta.VaultID,
	}, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Api-Key", c.apiKey)
}

// get performs a GET with constant-delay retries on transient statuses.
func (c *Client) get(ctx context.Context, urlPath string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+urlPath, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, fmt.Errorf("transient HTTP %d from %s", resp.StatusCode, urlPath)
		default:
			return nil, backoff.Permanent(fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, urlPath, string(body)))
		}
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.retryDelay)),
		backoff.WithMaxTries(c.maxTries))
}

func (c *Client) doJSON(ctx context.Context, method, urlPath string, body []byte, dest any) error {
	var data []byte
	var err error

	if method == http.MethodGet {
		data, err = c.get(ctx, urlPath)
		if err != nil {
			return err
		}
	} else {
		req, rerr := http.NewRequestWithContext(ctx, method, c.baseURL+urlPath, bytes.NewReader(body))
		if rerr != nil {
			return rerr
		}
		c.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, derr := c.httpClient.Do(req)
		if derr != nil {
			return derr
		}
		defer resp.Body.Close()

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			return fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, urlPath, string(data))
		}
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", urlPath, err)
	}
	return nil
}

// tusMetadata encodes the TUS Upload-Metadata header: comma-separated
// "key base64(value)" pairs.
func tusMetadata(values map[string]string) string {
	pairs := make([]string, 0, len(values))
	for k, v := range values {
		pairs = append(pairs, k+" "+base64.StdEncoding.EncodeToString([]byte(v)))
	}
	return strings.Join(pairs, ",")
}
