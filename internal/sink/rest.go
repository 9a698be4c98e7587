package sink

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

	"github.com/neo/personasim/internal/record"
)

// DefaultTable is the remote table records are inserted into.
const DefaultTable = "persona_responses_duplicate"

var ErrMissingCredentials = errors.New("remote datastore URL and key are required")

// RESTConfig configures a RESTSink
type RESTConfig struct {
	URL          string // project URL, e.g. https://xyz.supabase.co
	Key          string
	Table        string
	MaxIteration int // the remote schema's iteration ceiling
	Timeout      time.Duration
	Client       *http.Client
}

// RESTSink inserts records into a PostgREST table using the remote schema's
// legacy column names.
type RESTSink struct {
	endpoint     string
	key          string
	maxIteration int
	client       *http.Client
}

// NewRESTSink validates the credentials; it does not contact the server.
func NewRESTSink(cfg RESTConfig) (*RESTSink, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.MaxIteration <= 0 {
		cfg.MaxIteration = record.MaxIteration
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &RESTSink{
		endpoint:     strings.TrimRight(cfg.URL, "/") + "/rest/v1/" + cfg.Table,
		key:          cfg.Key,
		maxIteration: cfg.MaxIteration,
		client:       client,
	}, nil
}

func (s *RESTSink) Insert(ctx context.Context, rec record.IterationRecord) error {
	body, err := json.Marshal(rec.LegacyPayload(s.maxIteration))
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote insert failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote insert rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (s *RESTSink) Name() string { return "rest" }

func (s *RESTSink) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
