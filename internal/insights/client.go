// Package insights consumes the external narrative-generation service. The
// service is an opaque collaborator: it receives summarized metrics and
// returns an executive narrative. Its failures never affect the numeric
// dashboard.
package insights

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrUnavailable indicates the narrative service errored or timed out.
var ErrUnavailable = errors.New("insights: generator unavailable")

// Narrative is the structured story returned by the generator.
type Narrative struct {
	Summary         string    `json:"summary"`
	KeyFindings     []string  `json:"keyFindings"`
	Recommendations []string  `json:"recommendations"`
	Risks           []string  `json:"risks"`
	Opportunities   []string  `json:"opportunities"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

// GenerateRequest is the wire payload the generator accepts.
type GenerateRequest struct {
	Context string `json:"context"`
	Data    any    `json:"data"`
}

// Generator produces narratives; *Client is the HTTP implementation.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (Narrative, error)
}

// Client talks to the narrative service over HTTP.
type Client struct {
	http *resty.Client
}

// NewClient configures the HTTP client for the generator endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("content-type", "application/json").
		SetTimeout(timeout)
	if apiKey != "" {
		client.SetHeader("x-api-key", apiKey)
	}
	return &Client{http: client}
}

// Generate posts the metric summary and decodes the narrative.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Narrative, error) {
	var narrative Narrative
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&narrative).
		Post("/v1/insights")
	if err != nil {
		return Narrative{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return Narrative{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}
	if narrative.GeneratedAt.IsZero() {
		narrative.GeneratedAt = time.Now().UTC()
	}
	return narrative, nil
}
