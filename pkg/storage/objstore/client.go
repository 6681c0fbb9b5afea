package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cliphive/cliphive-backend/pkg/config"
	"github.com/cliphive/cliphive-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client talks to the binary object store over bearer-authenticated HTTP.
// One PUT per object; the transport has no chunking or resumption, which is
// why size limits are enforced upstream by the constraint policy.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	publicBaseURL string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient validates the configuration and builds the store client.
func NewClient(ctx context.Context, cfg config.ObjectStoreConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("object store base url is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	publicBase := cfg.PublicBaseURL
	if publicBase == "" {
		publicBase = cfg.BaseURL
	}

	client := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		publicBaseURL: strings.TrimRight(publicBase, "/"),
	}

	if logg != nil {
		logg.Info(ctx, "object store client initialized")
	}

	return client, nil
}

// Put stores one object under bucket/key. Any non-2xx response is an error;
// the caller decides whether that is fatal for its artifact.
func (c *Client) Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType, bearer string) error {
	if bucket == "" || key == "" {
		return errors.New("bucket and key are required")
	}
	if bearer == "" {
		return errors.New("bearer credential is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(c.baseURL, bucket, key), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", contentType)
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if len(detail) > 0 {
			return fmt.Errorf("put object %s/%s: %s: %s", bucket, key, resp.Status, strings.TrimSpace(string(detail)))
		}
		return fmt.Errorf("put object %s/%s: %s", bucket, key, resp.Status)
	}

	return nil
}

// PublicURL resolves the stable read URL for a stored object.
func (c *Client) PublicURL(bucket, key string) string {
	return c.objectURL(c.publicBaseURL, "public/"+bucket, key)
}

// Ping verifies the store endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("object store client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("object store check failed: %s", resp.Status)
	}
	return nil
}

func (c *Client) objectURL(base, bucket, key string) string {
	segments := []string{}
	for _, part := range strings.Split(bucket+"/"+key, "/") {
		if part == "" {
			continue
		}
		segments = append(segments, url.PathEscape(part))
	}
	return base + "/object/" + strings.Join(segments, "/")
}
