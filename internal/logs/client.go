package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vietkynl99/Donghua-subtitle-translator-AI/internal/api"
)

// ErrUnavailable reports that no log server answered.
var ErrUnavailable = errors.New("log server unavailable")

// Client pages through the /api/logs endpoint of a running server.
type Client struct {
	base *url.URL
	http *http.Client
}

// Query selects a page of events.
type Query struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	RunID     string
}

// NewClient returns nil when bind is empty.
func NewClient(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	// No timeout: follow requests block until events arrive or ctx ends.
	return &Client{base: base, http: &http.Client{}}, nil
}

func (q Query) values() url.Values {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if component := strings.TrimSpace(q.Component); component != "" {
		values.Set("component", component)
	}
	if runID := strings.TrimSpace(q.RunID); runID != "" {
		values.Set("run", runID)
	}
	return values
}

// Fetch requests one page of events.
func (c *Client) Fetch(ctx context.Context, q Query) (api.LogStreamResponse, error) {
	if c == nil {
		return api.LogStreamResponse{}, ErrUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: q.values().Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogStreamResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return api.LogStreamResponse{}, fmt.Errorf("log server returned status %d", resp.StatusCode)
	}
	var payload api.LogStreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogStreamResponse{}, fmt.Errorf("decode log page: %w", err)
	}
	return payload, nil
}

// IsUnavailable reports whether err means nothing is listening.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
