package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*genai.GenerateContentResponse), args.Error(1)
}

func textResponse(text string, chunks ...*genai.GroundingChunk) *genai.GenerateContentResponse {
	candidate := &genai.Candidate{
		Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
	}
	if len(chunks) > 0 {
		candidate.GroundingMetadata = &genai.GroundingMetadata{GroundingChunks: chunks}
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{candidate}}
}

func webChunk(title, uri string) *genai.GroundingChunk {
	return &genai.GroundingChunk{Web: &genai.GroundingChunkWeb{Title: title, URI: uri}}
}

func testGemini(gen generator) *Gemini {
	return newGemini(gen, config.AIConfig{Model: "test-model", Timeout: time.Second}, nil)
}

func TestGemini_ReverseGeocode(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, "test-model", mock.Anything, mock.MatchedBy(func(c *genai.GenerateContentConfig) bool {
		return c.ResponseMIMEType == "application/json" && c.ResponseSchema == placeSchema
	})).Return(textResponse(`{"city":"State College","country":"USA"}`), nil)

	place, err := testGemini(gen).ReverseGeocode(context.Background(), model.Coordinate{Lat: 40.7934, Lng: -77.86})

	require.NoError(t, err)
	assert.Equal(t, model.Place{City: "State College", Country: "USA"}, place)
	gen.AssertExpectations(t)
}

func TestGemini_ReverseGeocode_Error(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("quota exceeded"))

	_, err := testGemini(gen).ReverseGeocode(context.Background(), model.Coordinate{})

	assert.ErrorContains(t, err, "quota exceeded")
}

func TestGemini_IdentifyPOI_UsesSearch(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, "test-model",
		mock.MatchedBy(func(contents []*genai.Content) bool {
			return len(contents) == 1 && len(contents[0].Parts) == 1 &&
				strings.Contains(contents[0].Parts[0].Text, "latitude 40.79, longitude -77.86 in State College, USA.")
		}),
		mock.MatchedBy(func(c *genai.GenerateContentConfig) bool {
			return len(c.Tools) == 1 && c.Tools[0].GoogleSearch != nil
		}),
	).Return(textResponse(`{"name":"Old Main","type":"Landmark","description":"d","address":"a","rating":4.5,"imageUrls":[]}`), nil)

	probe := model.NewProbe(model.Coordinate{Lat: 40.79, Lng: -77.86})
	e, err := testGemini(gen).IdentifyPOI(context.Background(), probe, model.Resolved("State College", "USA"))

	require.NoError(t, err)
	assert.Equal(t, "Old Main", e.Name)
	gen.AssertExpectations(t)
}

func TestGemini_QuickSuggestions_InvalidShape(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(textResponse(`{"items":[]}`), nil)

	_, err := testGemini(gen).QuickSuggestions(context.Background(), "Lisbon", "Portugal")

	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestGemini_ChatComplete(t *testing.T) {
	history := []model.ChatMessage{
		{Role: model.RoleUser, Text: "Where should I eat?"},
		{Role: model.RoleAssistant, Text: "Try the market."},
		{Role: model.RoleUser, Text: "Anything vegetarian?"},
	}

	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.Anything, "test-model",
		mock.MatchedBy(func(contents []*genai.Content) bool {
			return len(contents) == 3 &&
				contents[0].Role == genai.RoleUser &&
				contents[1].Role == genai.RoleModel &&
				contents[2].Parts[0].Text == "Anything vegetarian?"
		}),
		mock.MatchedBy(func(c *genai.GenerateContentConfig) bool {
			return c.SystemInstruction != nil && c.SystemInstruction.Parts[0].Text == "be brief" &&
				len(c.Tools) == 1 && c.Tools[0].GoogleSearch != nil
		}),
	).Return(textResponse("**Veggie Grill** is nearby. See [menu](https://v.example).",
		webChunk("Veggie Grill", "https://v.example"),
		webChunk("Duplicate", "https://v.example"),
		webChunk("", "https://w.example"),
		&genai.GroundingChunk{},
	), nil)

	reply, err := testGemini(gen).ChatComplete(context.Background(), history, "be brief")

	require.NoError(t, err)
	assert.Equal(t, "Veggie Grill is nearby. See menu.", reply.Text)
	assert.Equal(t, []model.Link{
		{Title: "Veggie Grill", URL: "https://v.example"},
		{Title: DefaultLinkTitle, URL: "https://w.example"},
	}, reply.Links)
	gen.AssertExpectations(t)
}

func TestGemini_TimeoutApplied(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("GenerateContent", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything, mock.Anything, mock.Anything).
		Return(textResponse(`{"city":"A","country":"B"}`), nil)

	_, err := testGemini(gen).ReverseGeocode(context.Background(), model.Coordinate{})

	require.NoError(t, err)
	gen.AssertExpectations(t)
}

func TestLiveMessage(t *testing.T) {
	assert.Equal(t, "", liveMessage(nil).Transcript)

	msg := liveMessage(&genai.LiveServerMessage{ServerContent: &genai.LiveServerContent{
		InputTranscription: &genai.Transcription{Text: "take me to"},
		TurnComplete:       true,
	}})
	assert.Equal(t, "take me to", msg.Transcript)
	assert.True(t, msg.TurnComplete)
}
