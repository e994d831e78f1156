package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/model"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// generator is the slice of the genai client used for request/response calls
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Gateway on the Gemini API
type Gemini struct {
	models  generator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a Gemini API client
func NewClient(ctx context.Context, cfg config.AIConfig) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// NewGemini creates a gateway over a genai client
func NewGemini(client *genai.Client, cfg config.AIConfig, logger *zap.Logger) *Gemini {
	return newGemini(client.Models, cfg, logger)
}

func newGemini(models generator, cfg config.AIConfig, logger *zap.Logger) *Gemini {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{
		models:  models,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

var (
	placeSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"city":    {Type: genai.TypeString},
			"country": {Type: genai.TypeString},
		},
		Required: []string{"city", "country"},
	}

	poiSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":               {Type: genai.TypeString},
			"type":               {Type: genai.TypeString},
			"description":        {Type: genai.TypeString},
			"address":            {Type: genai.TypeString},
			"rating":             {Type: genai.TypeNumber},
			"user_ratings_total": {Type: genai.TypeInteger},
			"opening_hours":      {Type: genai.TypeString},
			"imageUrls": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"name", "type", "description", "address", "rating", "imageUrls"},
	}

	suggestionsSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"suggestions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString},
						"category":    {Type: genai.TypeString},
						"icon":        {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
					},
					Required: []string{"title", "category", "icon", "description"},
				},
			},
		},
	}

	searchTools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
)

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no response", ErrInvalidResponse)
	}
	return resp, nil
}

// ReverseGeocode resolves a coordinate to city and country
func (g *Gemini) ReverseGeocode(ctx context.Context, at model.Coordinate) (model.Place, error) {
	resp, err := g.generate(ctx, genai.Text(reverseGeocodePrompt(at)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   placeSchema,
	})
	if err != nil {
		return model.Place{}, err
	}
	return DecodePlace(resp.Text())
}

// IdentifyPOI asks for the landmark nearest to the probe, grounded on search
func (g *Gemini) IdentifyPOI(ctx context.Context, probe model.POICandidate, near model.LocationContext) (model.POIEnrichment, error) {
	resp, err := g.generate(ctx, genai.Text(identifyPOIPrompt(probe, near)), &genai.GenerateContentConfig{
		Tools:            searchTools,
		ResponseMIMEType: "application/json",
		ResponseSchema:   poiSchema,
	})
	if err != nil {
		return model.POIEnrichment{}, err
	}
	return DecodePOI(resp.Text())
}

// QuickSuggestions fetches short travel ideas for a city
func (g *Gemini) QuickSuggestions(ctx context.Context, city, country string) ([]model.Suggestion, error) {
	resp, err := g.generate(ctx, genai.Text(quickSuggestionsPrompt(city, country)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionsSchema,
	})
	if err != nil {
		return nil, err
	}
	return DecodeSuggestions(resp.Text())
}

// ChatComplete continues a conversation with search grounding
func (g *Gemini) ChatComplete(ctx context.Context, history []model.ChatMessage, systemContext string) (Reply, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		var role genai.Role = genai.RoleUser
		if m.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	resp, err := g.generate(ctx, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(systemContext)}},
		Tools:             searchTools,
	})
	if err != nil {
		return Reply{}, err
	}

	reply := Reply{
		Text:  CleanText(resp.Text()),
		Links: DedupLinks(groundingLinks(resp)),
	}
	g.logger.Debug("Chat reply",
		zap.Int("history", len(history)),
		zap.Int("links", len(reply.Links)),
	)
	return reply, nil
}

func groundingLinks(resp *genai.GenerateContentResponse) []model.Link {
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var links []model.Link
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		links = append(links, model.Link{Title: chunk.Web.Title, URL: chunk.Web.URI})
	}
	return links
}
