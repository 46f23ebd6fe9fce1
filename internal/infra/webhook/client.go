// Package webhook implements the pull work source and the status notifier
// against the upstream video API.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/subatic/transcode-worker/internal/domain/entity"
	"github.com/subatic/transcode-worker/internal/domain/port"
)

const tokenHeader = "X-Webhook-Token"

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL, token string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Next pulls the next pending video id. A body without an id means no work.
func (c *Client) Next(ctx context.Context) (*port.WorkItem, error) {
	if c.baseURL == "" || c.token == "" {
		return nil, errors.New("webhook url or token not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/video/getNext", nil)
	if err != nil {
		return nil, fmt.Errorf("build getNext request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getNext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("getNext: unexpected status %d", resp.StatusCode)
	}

	var next entity.NextVideoResponse
	if err := json.NewDecoder(resp.Body).Decode(&next); err != nil {
		return nil, fmt.Errorf("decode getNext response: %w", err)
	}
	if next.ID == "" {
		return nil, nil
	}
	return &port.WorkItem{VideoID: next.ID}, nil
}

// Complete is a no-op: the upstream tracks job state through updateStatus.
func (c *Client) Complete(context.Context, *port.WorkItem) error { return nil }

// Release is a no-op for the same reason.
func (c *Client) Release(context.Context, *port.WorkItem) error { return nil }

// NotifyStatus posts the terminal status. Non-2xx responses are errors for
// the caller to log; they never affect the job outcome.
func (c *Client) NotifyStatus(ctx context.Context, videoID string, status entity.ReportedStatus, duration float64) error {
	if c.baseURL == "" || c.token == "" {
		return errors.New("webhook url or token not configured")
	}

	body, err := json.Marshal(entity.StatusUpdate{ID: videoID, Status: status, Duration: duration})
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/video/updateStatus", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build updateStatus request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("updateStatus: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("updateStatus: unexpected status %d", resp.StatusCode)
	}

	c.logger.Info("status reported",
		zap.String("video_id", videoID),
		zap.String("status", string(status)),
		zap.Float64("duration", duration),
	)
	return nil
}
