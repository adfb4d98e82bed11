package booru

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nocturne9/favgrid/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "favgrid/1.0"
)

// Client implements domain.PostRepository against the board's legacy JSON API.
type Client struct {
	baseURL    string
	login      string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new board API client. baseURL is the site root, e.g.
// "https://e926.net".
func NewClient(baseURL, login, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		login:   login,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// doRequest performs an authenticated request and returns the body along with
// the HTTP status code. Some endpoints use status codes as outcomes (423 on
// favourite requests), so non-2xx responses are returned to the caller rather
// than flattened into errors here.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) ([]byte, int, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("login", c.login)
	query.Set("password_hash", c.apiKey)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	c.logger.Debug("booru request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("booru request failed", "error", err)
		return nil, 0, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, resp.StatusCode, domain.ErrAuthFailed
	}

	return body, resp.StatusCode, nil
}

// Search returns one page of posts matching the given tags.
func (c *Client) Search(ctx context.Context, tags []string, limit, page int) ([]domain.Post, error) {
	query := url.Values{}
	query.Set("tags", strings.Join(tags, " "))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("page", strconv.Itoa(page))

	body, status, err := c.doRequest(ctx, http.MethodGet, "/post/index.json", query)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.logger.Error("booru search error", "status", status, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	var dtos []postDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		c.logger.Error("search parse error", "error", err, "bodyLen", len(body))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return mapPosts(dtos), nil
}

// Show returns the canonical record for a post id.
func (c *Client) Show(ctx context.Context, id int) (*domain.Post, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(id))

	body, status, err := c.doRequest(ctx, http.MethodGet, "/post/show.json", query)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, domain.ErrPostNotFound
	}
	if status != http.StatusOK {
		c.logger.Error("booru show error", "status", status, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	var dto postDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	post := mapPost(dto)
	return &post, nil
}

// Vote casts a vote in the given direction. The board interprets a repeated
// vote in the same direction as a retraction; the result's Change field
// reports what was actually applied.
func (c *Client) Vote(ctx context.Context, id, dir int) (*domain.VoteResult, error) {
	if dir != domain.VoteUp && dir != domain.VoteDown {
		return nil, fmt.Errorf("invalid vote direction: %d", dir)
	}

	query := url.Values{}
	query.Set("id", strconv.Itoa(id))
	query.Set("score", strconv.Itoa(dir))

	body, status, err := c.doRequest(ctx, http.MethodPost, "/post/vote.json", query)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.logger.Error("booru vote error", "status", status, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	var dto voteDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !dto.Success && dto.Reason != "" {
		return nil, fmt.Errorf("vote refused: %s", dto.Reason)
	}

	return &domain.VoteResult{Change: dto.Change, Score: dto.Score}, nil
}

// FavoriteCreate adds the post to the user's favourites. A 423 response
// means the post was already favourited and is reported via Already.
func (c *Client) FavoriteCreate(ctx context.Context, id int) (*domain.FaveResult, error) {
	return c.favorite(ctx, "/favorite/create.json", id)
}

// FavoriteDestroy removes the post from the user's favourites.
func (c *Client) FavoriteDestroy(ctx context.Context, id int) (*domain.FaveResult, error) {
	return c.favorite(ctx, "/favorite/destroy.json", id)
}

func (c *Client) favorite(ctx context.Context, path string, id int) (*domain.FaveResult, error) {
	query := url.Values{}
	query.Set("id", strconv.Itoa(id))

	body, status, err := c.doRequest(ctx, http.MethodPost, path, query)
	if err != nil {
		return nil, err
	}

	var dto favoriteDTO
	// 423 bodies are sometimes empty; tolerate parse failure there.
	if parseErr := json.Unmarshal(body, &dto); parseErr != nil && status != http.StatusLocked {
		return nil, fmt.Errorf("failed to parse response: %w", parseErr)
	}

	switch {
	case status == http.StatusLocked:
		return mapFave(dto, true), nil
	case status != http.StatusOK:
		c.logger.Error("booru favorite error", "status", status, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	return mapFave(dto, false), nil
}
