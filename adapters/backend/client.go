package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/config"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

const (
	remoteName   = "backend"
	maxErrorBody = 512
)

// Client talks to the career backend over REST. Transport errors and non-2xx
// answers are returned as apperror.ErrRemoteUnavailable; a 404 on a read is
// apperror.ErrNotFound.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

var _ service.BackendSync = (*Client)(nil)

func NewClient(cfg config.Config, log logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Backend.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log,
	}
}

type profilePayload struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Skills      []string `json:"skills"`
	Education   string   `json:"education"`
	Experience  string   `json:"experience"`
	Projects    string   `json:"projects"`
	Interests   string   `json:"interests"`
	CareerGoal  string   `json:"career_goal"`
	Level       string   `json:"level"`
	IsOnboarded bool     `json:"is_onboarded"`
}

func (c *Client) SyncProfile(ctx context.Context, p *profile.Profile) error {
	body := profilePayload{
		ID:          p.ID.String(),
		Email:       p.Email,
		Name:        p.Name,
		Skills:      p.Skills,
		Education:   p.Education,
		Experience:  p.Experience,
		Projects:    p.Projects,
		Interests:   p.Interests,
		CareerGoal:  p.CareerGoal,
		Level:       p.Level,
		IsOnboarded: p.IsOnboarded,
	}
	return c.do(ctx, http.MethodPost, "/api/user/profile", nil, body, nil)
}

func (c *Client) Generate(ctx context.Context, req roadmap.GenerateRequest) (*roadmap.Roadmap, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/roadmap/generate", nil, req, &raw); err != nil {
		return nil, err
	}
	return decodeRoadmap(raw, req.Email)
}

func (c *Client) Fetch(ctx context.Context, email string, refresh bool) (*roadmap.Roadmap, error) {
	raw, err := c.raw(ctx, "/api/roadmap", email, refresh)
	if err != nil {
		return nil, err
	}
	return decodeRoadmap(raw, email)
}

func (c *Client) Update(ctx context.Context, email string, r *roadmap.Roadmap) error {
	body := struct {
		Email   string           `json:"email"`
		Roadmap *roadmap.Roadmap `json:"roadmap_data"`
	}{Email: email, Roadmap: r}
	return c.do(ctx, http.MethodPost, "/api/roadmap/update", nil, body, nil)
}

func (c *Client) JobRecommendations(ctx context.Context, email string, refresh bool) (json.RawMessage, error) {
	return c.raw(ctx, "/api/recommendations/jobs", email, refresh)
}

func (c *Client) SkillsGap(ctx context.Context, email string, refresh bool) (json.RawMessage, error) {
	return c.raw(ctx, "/api/analyze/skills-gap", email, refresh)
}

func (c *Client) raw(ctx context.Context, path, email string, refresh bool) (json.RawMessage, error) {
	q := url.Values{"email": {email}}
	if refresh {
		q.Set("refresh", "true")
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeRoadmap accepts the roadmap either under "roadmap" or bare.
func decodeRoadmap(raw json.RawMessage, email string) (*roadmap.Roadmap, error) {
	var wrapped struct {
		Roadmap *roadmap.Roadmap `json:"roadmap"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, apperror.NewRemoteUnavailable(remoteName, "roadmap response is not an object", err)
	}
	r := wrapped.Roadmap
	if r == nil {
		r = &roadmap.Roadmap{}
		if err := json.Unmarshal(raw, r); err != nil {
			return nil, apperror.NewRemoteUnavailable(remoteName, "roadmap response could not be decoded", err)
		}
	}
	if len(r.Milestones) == 0 {
		return nil, apperror.NewAppError(apperror.ErrNotFound, "roadmap not found", email, roadmap.ErrRoadmapNotFound)
	}
	if r.Email == "" {
		r.Email = email
	}
	return r.Normalize(), nil
}

// envelopeError reports the error the backend embeds in a 200 answer, as in
// {"status": "error", "message": "..."} or {"error": "User not found"}.
func envelopeError(raw []byte) error {
	var env struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &env) != nil {
		return nil
	}
	switch {
	case env.Error != "" && strings.Contains(strings.ToLower(env.Error), "not found"):
		return apperror.NewNotFound("backend resource", env.Error)
	case env.Error != "":
		return apperror.NewRemoteUnavailable(remoteName, env.Error, nil)
	case env.Status == "error":
		return apperror.NewRemoteUnavailable(remoteName, env.Message, nil)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return apperror.NewInternal("failed to encode backend request", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return apperror.NewInternal("failed to build backend request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperror.NewRemoteUnavailable(remoteName, fmt.Sprintf("%s %s timed out", method, path), err)
		}
		return apperror.NewRemoteUnavailable(remoteName, fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperror.NewRemoteUnavailable(remoteName, "failed to read response body", err)
	}
	c.logger.Debug("Backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return apperror.NewNotFound("backend resource", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return apperror.NewRemoteUnavailable(remoteName,
			fmt.Sprintf("%s %s returned %d: %s", method, path, resp.StatusCode, snippet), nil)
	}
	if err := envelopeError(data); err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperror.NewRemoteUnavailable(remoteName, "response could not be decoded", err)
	}
	return nil
}
