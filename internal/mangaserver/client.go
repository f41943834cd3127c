// Package mangaserver is the HTTP client for the remote manga server.
// It implements domain.ProgressClient; everything above it is transport-
// agnostic.
package mangaserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kagemura/tosho/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Tosho/1.0"

	// Snapshot fetches are paced so dashboard + grid + chapter revalidation
	// bursts don't hammer a self-hosted server.
	requestsPerSecond = 4
	requestBurst      = 2
)

// Client talks to the manga server's REST API
type Client struct {
	baseURL    string
	token      string
	clientID   string // stable per-process instance identifier
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new manga server API client
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		clientID: uuid.New().String(),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:  logger,
	}
}

// FetchSeriesList returns every series in the user's library
func (c *Client) FetchSeriesList(ctx context.Context) ([]domain.Series, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/series", nil, domain.ErrSeriesNotFound)
	if err != nil {
		return nil, err
	}
	var dtos []seriesDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse series list: %w", err)
	}
	out := make([]domain.Series, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}

// FetchChapters returns all chapters of a series with the caller's progress
func (c *Client) FetchChapters(ctx context.Context, seriesID string) ([]domain.Chapter, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/series/"+seriesID+"/chapters", nil, domain.ErrSeriesNotFound)
	if err != nil {
		return nil, err
	}
	var dtos []chapterDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse chapters: %w", err)
	}
	out := make([]domain.Chapter, len(dtos))
	for i, d := range dtos {
		out[i] = d.toDomain()
	}
	return out, nil
}

// FetchDashboard returns the server's view of the library-wide stats
func (c *Client) FetchDashboard(ctx context.Context) (domain.LibraryStats, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/api/dashboard", nil, nil)
	if err != nil {
		return domain.LibraryStats{}, err
	}
	var dto dashboardDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return domain.LibraryStats{}, fmt.Errorf("failed to parse dashboard: %w", err)
	}
	return dto.toDomain(), nil
}

// SubmitProgress submits a mark read/unread mutation and returns the
// server-confirmed chapter state. The seq token is echoed back verbatim.
func (c *Client) SubmitProgress(ctx context.Context, chapterID string, read bool, seq uint64) (domain.Chapter, error) {
	payload, err := json.Marshal(progressRequest{Read: read, Seq: seq})
	if err != nil {
		return domain.Chapter{}, fmt.Errorf("failed to encode mutation: %w", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/chapters/"+chapterID+"/progress", payload, domain.ErrChapterNotFound)
	if err != nil {
		return domain.Chapter{}, err
	}
	var resp progressResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Chapter{}, fmt.Errorf("failed to parse mutation response: %w", err)
	}
	return resp.Chapter.toDomain(), nil
}

// doRequest performs an authenticated, rate-limited HTTP request and maps
// transport and status failures onto domain sentinel errors. notFound is the
// sentinel a 404 maps to for this endpoint.
func (c *Client) doRequest(ctx context.Context, method, path string, payload []byte, notFound error) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Client-Identifier", c.clientID)
	req.Header.Set("X-Request-ID", uuid.New().String())
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("server request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("server request failed", "error", err)
		return nil, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusUnauthorized:
		return nil, domain.ErrAuthFailed
	case http.StatusNotFound:
		if notFound != nil {
			return nil, notFound
		}
	case http.StatusConflict:
		return nil, domain.ErrConflict
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return nil, domain.ErrInvalidMutation
	}

	c.logger.Error("server request error", "status", resp.StatusCode, "body", string(body))
	return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
}
