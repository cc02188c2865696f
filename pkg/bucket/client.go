package bucket

// OBJECT STORAGE CLIENT

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client uploads objects to a Supabase-style storage API and builds
// their public URLs.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL, serviceKey, bucket string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Upload stores the object and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectName),
		bytes.NewReader(data),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	c.logger.Debug("Object uploaded",
		zap.String("bucket", c.bucket),
		zap.String("object", objectName))

	return c.PublicURL(objectName), nil
}

// Download fetches a file from an arbitrary URL (used for pulling
// photo bytes from the messaging provider).
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// PublicURL builds the public URL for an object in the bucket.
func (c *Client) PublicURL(objectName string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectName)
}
