// Package gemini asks a Gemini model to curate waffles from a mood and to
// describe compositions.
package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"google.golang.org/genai"

	"github.com/xenking/waffle-kart/internal/domain/advisory"
	"github.com/xenking/waffle-kart/internal/domain/catalog"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-2.5-flash"

	// FallbackDescription is used when the model answers with no text.
	FallbackDescription = "A delicious custom creation made just for you."
)

var (
	_ advisory.Advisor   = (*Client)(nil)
	_ advisory.Describer = (*Client)(nil)
)

// Config configures a Client.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
	// Timeout bounds each call on top of the caller's context.
	Timeout time.Duration
}

// Client is a Gemini-backed advisor and describer.
type Client struct {
	models  *genai.Models
	catalog *catalog.Catalog
	model   string
	timeout time.Duration
	schema  *genai.Schema
}

// New returns a client. httpClient carries the transport (and its
// instrumentation); nil leaves the SDK default.
func New(ctx context.Context, cfg Config, c *catalog.Catalog, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.Endpoint,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "gemini: create client")
	}

	return &Client{
		models:  client.Models,
		catalog: c,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		schema:  suggestionSchema(c),
	}, nil
}

// suggestionSchema constrains curation answers to the menu ids.
func suggestionSchema(c *catalog.Catalog) *genai.Schema {
	bases := c.ListBases()
	baseIDs := make([]string, len(bases))
	for i, b := range bases {
		baseIDs[i] = b.ID
	}
	toppings := c.ListToppings()
	toppingIDs := make([]string, len(toppings))
	for i, t := range toppings {
		toppingIDs[i] = t.ID
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"baseId": {Type: genai.TypeString, Enum: baseIDs},
			"toppingIds": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString, Enum: toppingIDs},
			},
			"reason": {Type: genai.TypeString},
		},
		Required:         []string{"baseId", "toppingIds", "reason"},
		PropertyOrdering: []string{"baseId", "toppingIds", "reason"},
	}
}

// Curate asks the model for a combination matching mood. The answer is
// parsed but not checked against the catalog; that is the caller's job.
func (c *Client) Curate(ctx context.Context, mood string) (*advisory.Suggestion, error) {
	text, err := c.generate(ctx, curatePrompt(c.catalog, mood), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   c.schema,
	})
	if err != nil {
		return nil, &advisory.RequestFailedError{Op: "curate", Err: err}
	}
	s, err := advisory.ParseSuggestion([]byte(text))
	if err != nil {
		return nil, &advisory.RequestFailedError{Op: "curate", Err: err}
	}
	return s, nil
}

// Describe asks for a short description of the composition.
func (c *Client) Describe(ctx context.Context, baseName string, toppingNames []string) (string, error) {
	text, err := c.generate(ctx, describePrompt(baseName, toppingNames), nil)
	if err != nil {
		return "", &advisory.RequestFailedError{Op: "describe", Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return FallbackDescription, nil
	}
	return text, nil
}

// generate returns the text of the first candidate.
func (c *Client) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		// Keep the deadline or cancellation visible to errors.Is whatever
		// the transport wrapped it in.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Wrapf(ctxErr, "generate content: %v", err)
		}
		return "", errors.Wrap(err, "generate content")
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("response has no candidates")
	}
	return resp.Text(), nil
}
