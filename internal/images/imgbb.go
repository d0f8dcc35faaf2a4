// Package images uploads pictures to an ImgBB-compatible hosting API and
// hands back public URLs for doctor and profile photos.
package images

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrCancelled marks an upload abandoned by the user (no file chosen).
// Callers suppress it instead of showing a failure alert.
var ErrCancelled = errors.New("image selection cancelled")

// IsCancelled reports whether err is the user-cancellation sentinel.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

type UploadResult struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	DeleteURL string `json:"deleteUrl"`
}

type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(apiKey, endpoint string, log *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = "https://api.imgbb.com/1/upload"
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL       string `json:"url"`
		DeleteURL string `json:"delete_url"`
		Thumb     struct {
			URL string `json:"url"`
		} `json:"thumb"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the image as base64 form data and returns the hosted URLs.
// Errors are passed through uninterpreted; there are no retries.
func (c *Client) Upload(ctx context.Context, image io.Reader) (*UploadResult, error) {
	raw, err := io.ReadAll(image)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrCancelled
	}

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(raw))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	var body imgbbResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if !body.Success {
		msg := body.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("upload failed with status %d", resp.StatusCode)
		}
		return nil, errors.New(msg)
	}

	result := &UploadResult{
		URL:       body.Data.URL,
		Thumbnail: body.Data.Thumb.URL,
		DeleteURL: body.Data.DeleteURL,
	}
	if result.Thumbnail == "" {
		result.Thumbnail = result.URL
	}
	c.log.Debug("image uploaded", zap.String("url", result.URL))
	return result, nil
}
