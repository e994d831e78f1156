package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/coordinator"
	"github.com/alexivanou/roamai/internal/database"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/gateway"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/repository"
	"github.com/alexivanou/roamai/internal/seeder"
	"github.com/alexivanou/roamai/internal/service"
	"github.com/alexivanou/roamai/internal/stats"
	"github.com/alexivanou/roamai/internal/voice"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway answers every AI operation from fixed data
type stubGateway struct{}

func (stubGateway) ReverseGeocode(_ context.Context, at model.Coordinate) (model.Place, error) {
	if at.Lat > 38 {
		return model.Place{City: "State College", Country: "USA"}, nil
	}
	return model.Place{City: "Lisbon", Country: "Portugal"}, nil
}

func (stubGateway) IdentifyPOI(context.Context, model.POICandidate, model.LocationContext) (model.POIEnrichment, error) {
	rating := 4.7
	return model.POIEnrichment{Name: "Old Main", Type: "Landmark", Description: "Historic campus building.", Rating: &rating}, nil
}

func (stubGateway) QuickSuggestions(_ context.Context, city, _ string) ([]model.Suggestion, error) {
	return []model.Suggestion{
		{Title: "Walk " + city, Description: "See the old town.", Icon: "🚶"},
		{Title: "Eat in " + city, Description: "Local food.", Icon: "🍽️"},
	}, nil
}

func (stubGateway) ChatComplete(_ context.Context, history []model.ChatMessage, _ string) (gateway.Reply, error) {
	last := history[len(history)-1].Text
	return gateway.Reply{Text: "You asked: " + last}, nil
}

// stubChannel transcribes the first audio chunk into a fixed phrase
type stubChannel struct {
	phrase    string
	incoming  chan voice.Message
	closed    chan struct{}
	once      sync.Once
	closeOnce sync.Once
}

func (c *stubChannel) Send([]byte) error {
	c.once.Do(func() {
		c.incoming <- voice.Message{Transcript: c.phrase}
		c.incoming <- voice.Message{TurnComplete: true}
	})
	return nil
}

func (c *stubChannel) Recv() (voice.Message, error) {
	select {
	case msg := <-c.incoming:
		return msg, nil
	case <-c.closed:
		return voice.Message{}, errors.New("closed")
	}
}

func (c *stubChannel) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

type stubDialer struct{ phrase string }

func (d stubDialer) Dial(context.Context) (voice.Channel, error) {
	return &stubChannel{phrase: d.phrase, incoming: make(chan voice.Message, 2), closed: make(chan struct{})}, nil
}

type integrationStack struct {
	server  *httptest.Server
	service *service.Service
}

func setupIntegrationStack(t *testing.T) *integrationStack {
	t.Helper()
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: "testdb_" + uuid.NewString()}

	db, err := database.Connect(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, cfg))

	repos := repository.NewRepositories(db, config.DBTypeMemory)
	require.NoError(t, repos.History.BulkInsert(context.Background(), seeder.DefaultHistory()))

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := events.NewHub(nil)
	go hub.Run(hubCtx)

	svc := service.NewService(service.Dependencies{
		Gateway:   stubGateway{},
		Dialer:    stubDialer{phrase: "coffee near Old Main"},
		Publisher: hub,
		Repos:     repos,
		Config: config.SessionConfig{
			GeocodeThreshold:  0.01,
			ProbeJitter:       0.005,
			BackOnlineWindow:  100 * time.Millisecond,
			VoiceGraceDelay:   10 * time.Millisecond,
			VoiceChunkSamples: 4,
			SuggestionLimit:   2,
			UserName:          "Traveler",
		},
	})
	statsCollector := stats.NewCollector(db, cfg, svc)

	server := httptest.NewServer(NewRouter(svc, hub, statsCollector, nil, nil))
	t.Cleanup(func() {
		svc.CloseAll()
		server.Close()
		stopHub()
		db.Close()
	})
	return &integrationStack{server: server, service: svc}
}

func (s *integrationStack) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func (s *integrationStack) snapshot(t *testing.T, id string) coordinator.Snapshot {
	t.Helper()
	resp, body := s.do(t, "GET", "/api/v1/sessions/"+id, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap coordinator.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	return snap
}

func (s *integrationStack) open(t *testing.T) string {
	t.Helper()
	resp, body := s.do(t, "POST", "/api/v1/sessions", `{"online": true}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var snap coordinator.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.NotEmpty(t, snap.ID)
	return snap.ID
}

func (s *integrationStack) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wireEvent struct {
	Type    events.Type          `json:"type"`
	Payload coordinator.Snapshot `json:"payload"`
}

func TestAPI_Integration_LocationFlow(t *testing.T) {
	stack := setupIntegrationStack(t)
	id := stack.open(t)

	stream := stack.dial(t, "/api/v1/sessions/"+id+"/events")
	var first wireEvent
	require.NoError(t, stream.ReadJSON(&first))
	assert.Equal(t, events.TypeSession, first.Type)
	assert.True(t, first.Payload.Location.IsLocating)

	resp, _ := stack.do(t, "POST", "/api/v1/sessions/"+id+"/position", `{"lat": 40.7934, "lng": -77.86}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the resolved place and suggestions arrive as pushed events
	_ = stream.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev wireEvent
		require.NoError(t, stream.ReadJSON(&ev))
		if len(ev.Payload.Suggestions) == 2 {
			assert.Equal(t, "State College", ev.Payload.Location.City)
			break
		}
	}

	snap := stack.snapshot(t, id)
	assert.Equal(t, "State College", snap.Location.City)
	assert.False(t, snap.Location.IsLocating)
	require.NotNil(t, snap.Map.Center)
	assert.Contains(t, snap.Map.EmbedURL, "q=40.7934,-77.86")
	assert.Equal(t, "Walk State College", snap.Suggestions[0].Title)

	// discovery mode and map tap
	resp, _ = stack.do(t, "PUT", "/api/v1/sessions/"+id+"/discovery", `{"active": true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := stack.do(t, "POST", "/api/v1/sessions/"+id+"/map/tap", `{"x": 0.5, "y": 0.5}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var probe model.POICandidate
	require.NoError(t, json.Unmarshal(body, &probe))
	assert.True(t, probe.IsPending())

	require.Eventually(t, func() bool {
		s := stack.snapshot(t, id)
		return s.POI != nil && s.POI.Name == "Old Main"
	}, 2*time.Second, 10*time.Millisecond)

	// close ends the stream
	resp, _ = stack.do(t, "DELETE", "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = stack.do(t, "GET", "/api/v1/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Integration_ChatAndHistory(t *testing.T) {
	stack := setupIntegrationStack(t)
	id := stack.open(t)
	base := "/api/v1/sessions/" + id

	resp, _ := stack.do(t, "POST", base+"/chat/messages", `{"text": "hello"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = stack.do(t, "POST", base+"/chat/open", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := stack.do(t, "POST", base+"/chat/messages", `{"text": "Where is lunch?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap coordinator.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Len(t, snap.Chat.Messages, 2)
	assert.Equal(t, "You asked: Where is lunch?", snap.Chat.Messages[1].Text)

	resp, _ = stack.do(t, "PUT", base+"/chat/interests/food", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = stack.do(t, "POST", base+"/chat/archive", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var archived model.ChatSession
	require.NoError(t, json.Unmarshal(body, &archived))
	assert.Equal(t, "Where is lunch?", archived.Title)

	resp, body = stack.do(t, "GET", "/api/v1/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history model.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Equal(t, 3, history.Count)

	// a seeded conversation replaces the active one
	resp, body = stack.do(t, "POST", base+"/history/2/load", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, "Recommend a good sushi place near Market St.", snap.Chat.Messages[0].Text)

	resp, _ = stack.do(t, "DELETE", base+"/chat/messages", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, body = stack.do(t, "DELETE", base+"/chat/messages?confirm=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Empty(t, snap.Chat.Messages)
}

func TestAPI_Integration_Voice(t *testing.T) {
	stack := setupIntegrationStack(t)
	id := stack.open(t)

	conn := stack.dial(t, "/api/v1/sessions/"+id+"/voice")
	// 4 samples of PCM16 silence fill one chunk
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 8)))

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var statuses []string
	for {
		var u model.VoiceUpdate
		if err := conn.ReadJSON(&u); err != nil {
			break
		}
		if u.Type == model.VoiceStatus {
			statuses = append(statuses, u.Status)
		}
	}
	assert.Contains(t, statuses, "listening")
	assert.Contains(t, statuses, "processing")

	require.Eventually(t, func() bool {
		s := stack.snapshot(t, id)
		return s.Chat.Open && len(s.Chat.Messages) == 2
	}, 2*time.Second, 10*time.Millisecond)

	snap := stack.snapshot(t, id)
	assert.False(t, snap.Voice.Active)
	assert.Equal(t, "coffee near Old Main", snap.Chat.Messages[0].Text)
}

func TestAPI_Integration_Stats(t *testing.T) {
	stack := setupIntegrationStack(t)
	stack.open(t)

	resp, body := stack.do(t, "GET", "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got stats.Stats
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 1, got.Sessions.Active)
	assert.Equal(t, int64(2), got.History.Conversations)
}
