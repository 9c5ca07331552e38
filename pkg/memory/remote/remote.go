// Package remote provides a memory.Driver backed by an external memory
// service exposing /search and /add_episode.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/recall/pkg/episode"
	"github.com/papercomputeco/recall/pkg/logger"
	"github.com/papercomputeco/recall/pkg/memory"
	"github.com/papercomputeco/recall/pkg/metrics"
)

// ErrUnavailable is returned for transport failures, non-2xx statuses and
// undecodable responses. Calls are never retried.
var ErrUnavailable = errors.New("remote memory unavailable")

const (
	source = "remote"

	// DefaultTarget is the default memory service URL.
	DefaultTarget = "http://localhost:8000"

	maxErrorBody = 512
)

// Config holds configuration for the remote memory driver.
type Config struct {
	// Target is the base URL of the memory service.
	Target string

	ProjectName string
	EngineName  string

	// AppName is stamped on every episode.
	AppName string

	// Timeout bounds each call. Zero leaves the caller's context alone.
	Timeout time.Duration

	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Driver implements memory.Driver against the remote memory API.
type Driver struct {
	target      string
	projectName string
	engineName  string
	appName     string
	timeout     time.Duration
	httpClient  *http.Client
	clock       func() time.Time
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewDriver creates a remote memory driver.
func NewDriver(c Config) *Driver {
	target := strings.TrimRight(c.Target, "/")
	if target == "" {
		target = DefaultTarget
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Driver{
		target:      target,
		projectName: c.ProjectName,
		engineName:  c.EngineName,
		appName:     c.AppName,
		timeout:     c.Timeout,
		httpClient:  httpClient,
		clock:       c.Clock,
		logger:      logger.OrNop(c.Logger),
		metrics:     metrics.OrNop(c.Metrics),
	}
}

type searchRequest struct {
	UserID      string `json:"user_id"`
	ProjectName string `json:"project_name"`
	EngineName  string `json:"engine_name"`
	Query       string `json:"query"`
}

type searchResponse struct {
	Results []struct {
		Content string `json:"content"`
	} `json:"results"`
}

type addEpisodeRequest struct {
	UserID      string          `json:"user_id"`
	ProjectName string          `json:"project_name"`
	EngineName  string          `json:"engine_name"`
	Session     episode.Episode `json:"session"`
}

// Recall asks the service for memories matching q.Text, one result per line.
// A 2xx body that is not the expected shape is passed through verbatim.
func (d *Driver) Recall(ctx context.Context, q memory.Query) (memory.Recollection, error) {
	body, err := d.post(ctx, "/search", searchRequest{
		UserID:      q.UserID,
		ProjectName: d.projectName,
		EngineName:  d.engineName,
		Query:       q.Text,
	})
	d.metrics.Remote("search", metrics.Outcome(err))
	if err != nil {
		d.metrics.Retrieval(source, metrics.OutcomeError)
		return memory.Recollection{}, err
	}

	text, items := parseSearch(body)

	dated := memory.ShouldIncludeDates(q.Text)
	if !dated {
		text = strings.TrimSpace(memory.StripDateTags(text))
	}

	rec := memory.Recollection{Text: text, Items: items, Dated: dated}
	outcome := metrics.OutcomeOK
	if rec.Empty() {
		outcome = metrics.OutcomeEmpty
	}
	d.metrics.Retrieval(source, outcome)

	d.logger.Debug("remote memory search",
		"user_id", q.UserID,
		"results", items,
	)
	return rec, nil
}

func parseSearch(body []byte) (string, int) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Results == nil {
		raw := strings.TrimSpace(string(body))
		if raw == "" || raw == "null" || raw == "{}" {
			return "", 0
		}
		return raw, 1
	}

	lines := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if c := strings.TrimSpace(r.Content); c != "" {
			lines = append(lines, c)
		}
	}
	return strings.Join(lines, "\n"), len(lines)
}

// Store ships the exchange as a one-event episode.
func (d *Driver) Store(ctx context.Context, ex memory.Exchange) error {
	ep, err := episode.Builder{
		AppName: d.appName,
		UserID:  ex.UserID,
		Clock:   d.clock,
	}.Build(episode.FormatExchange(ex.UserText, ex.AgentText))
	if err != nil {
		return err
	}

	return d.AddEpisode(ctx, ex.UserID, ep)
}

// AddEpisode posts a prebuilt episode.
func (d *Driver) AddEpisode(ctx context.Context, userID string, ep episode.Episode) error {
	_, err := d.post(ctx, "/add_episode", addEpisodeRequest{
		UserID:      userID,
		ProjectName: d.projectName,
		EngineName:  d.engineName,
		Session:     ep,
	})
	d.metrics.Remote("add_episode", metrics.Outcome(err))
	if err != nil {
		return err
	}

	d.logger.Debug("added episode", "user_id", userID, "episode_id", ep.ID)
	return nil
}

func (d *Driver) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling %s request: %v", ErrUnavailable, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.target+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s request: %v", ErrUnavailable, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending %s request: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %v", ErrUnavailable, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrUnavailable, path, resp.StatusCode, snippet)
	}

	return body, nil
}

// Close releases idle connections.
func (d *Driver) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

var _ memory.Driver = (*Driver)(nil)
