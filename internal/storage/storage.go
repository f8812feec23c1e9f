package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bijouterie-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxImageSize caps product image uploads at 5 MB.
const MaxImageSize = 5 << 20

var (
	ErrNotConfigured   = errors.New("object storage not configured")
	ErrImageTooLarge   = errors.New("image exceeds the 5MB limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// extensions maps the accepted content types to the stored file extension.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type Client interface {
	// UploadImage stores the image under a random key and returns its public URL.
	UploadImage(ctx context.Context, data []byte, contentType string) (string, error)
	DeleteImage(ctx context.Context, publicURL string) error
}

type client struct {
	baseURL    string
	bucket     string
	serviceKey string
	httpClient *http.Client
}

func NewClient(baseURL, bucket, serviceKey string) Client {
	if baseURL == "" || serviceKey == "" {
		logger.L().Warn("object storage not configured, image uploads disabled")
	}
	return &client{
		baseURL:    baseURL,
		bucket:     bucket,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *client) UploadImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if c.baseURL == "" || c.serviceKey == "" {
		return "", ErrNotConfigured
	}
	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}

	ext, ok := extensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	// Random key so an upload can never overwrite another product's image.
	key := uuid.NewString() + ext

	log := logger.FromCtx(ctx).With(
		zap.String("bucket", c.bucket),
		zap.String("key", key),
	)

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("image upload failed", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("storage returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return "", fmt.Errorf("storage error: status %d", resp.StatusCode)
	}

	log.Info("image uploaded")
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key), nil
}

// DeleteImage removes the object behind publicURL. A miss is not an error;
// the caller is cleaning up after a product delete.
func (c *client) DeleteImage(ctx context.Context, publicURL string) error {
	if c.baseURL == "" || c.serviceKey == "" {
		return ErrNotConfigured
	}

	prefix := fmt.Sprintf("%s/storage/v1/object/public/%s/", c.baseURL, c.bucket)
	if len(publicURL) <= len(prefix) || publicURL[:len(prefix)] != prefix {
		return nil
	}
	key := publicURL[len(prefix):]

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("storage error: status %d", resp.StatusCode)
	}
	return nil
}
