package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexivanou/roamai/internal/chat"
	"github.com/alexivanou/roamai/internal/coordinator"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/repository"
	"github.com/alexivanou/roamai/internal/service"
	"github.com/alexivanou/roamai/internal/voice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockService is a mock implementation of ServiceInterface
type MockService struct {
	mock.Mock
}

func (m *MockService) OpenSession(ctx context.Context, online bool) (service.Session, error) {
	args := m.Called(ctx, online)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockService) Session(id string) (service.Session, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(service.Session), args.Error(1)
}

func (m *MockService) CloseSession(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockService) ActiveSessions() int {
	return m.Called().Int(0)
}

func (m *MockService) ListHistory(ctx context.Context) ([]model.ChatSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatSession), args.Error(1)
}

func (m *MockService) GetHistory(ctx context.Context, id string) (*model.ChatSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatSession), args.Error(1)
}

func (m *MockService) ArchiveChat(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatSession), args.Error(1)
}

func (m *MockService) LoadHistory(ctx context.Context, sessionID, historyID string) error {
	return m.Called(ctx, sessionID, historyID).Error(0)
}

// MockSession is a mock implementation of service.Session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) ID() string { return m.Called().String(0) }

func (m *MockSession) Snapshot() coordinator.Snapshot {
	return m.Called().Get(0).(coordinator.Snapshot)
}

func (m *MockSession) Position(ctx context.Context, at model.Coordinate) error {
	return m.Called(ctx, at).Error(0)
}

func (m *MockSession) PositionError(ctx context.Context, code int, message string) error {
	return m.Called(ctx, code, message).Error(0)
}

func (m *MockSession) Connectivity(ctx context.Context, online bool) error {
	return m.Called(ctx, online).Error(0)
}

func (m *MockSession) SetDiscovery(active bool) { m.Called(active) }

func (m *MockSession) TapMap(x, y float64) (model.POICandidate, error) {
	args := m.Called(x, y)
	return args.Get(0).(model.POICandidate), args.Error(1)
}

func (m *MockSession) DismissPOI()       { m.Called() }
func (m *MockSession) ExplorePOI() error { return m.Called().Error(0) }
func (m *MockSession) GoPOI()            { m.Called() }

func (m *MockSession) SelectSuggestion(index int) error { return m.Called(index).Error(0) }

func (m *MockSession) OpenChat()                          { m.Called() }
func (m *MockSession) CloseChat()                         { m.Called() }
func (m *MockSession) SendChat(text string) error         { return m.Called(text).Error(0) }
func (m *MockSession) SuggestSpots() error                { return m.Called().Error(0) }
func (m *MockSession) ToggleInterest(id string) error     { return m.Called(id).Error(0) }
func (m *MockSession) SetPreference(text string) error    { return m.Called(text).Error(0) }
func (m *MockSession) SetChatLocation(label string) error { return m.Called(label).Error(0) }
func (m *MockSession) ClearChat(confirmed bool) error     { return m.Called(confirmed).Error(0) }

func (m *MockSession) SetOverlay(name string, open bool) error { return m.Called(name, open).Error(0) }
func (m *MockSession) UpdateSettings(s model.Settings)         { m.Called(s) }

func (m *MockSession) StartVoice(mic voice.Microphone, notify coordinator.VoiceNotify) error {
	return m.Called(mic, notify).Error(0)
}

func (m *MockSession) FinishVoice() error { return m.Called().Error(0) }
func (m *MockSession) CancelVoice() error { return m.Called().Error(0) }

func (m *MockSession) VoiceDone() <-chan struct{} {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(<-chan struct{})
}

const testSessionID = "11111111-2222-3333-4444-555555555555"

func testSnapshot() coordinator.Snapshot {
	return coordinator.Snapshot{
		ID:       testSessionID,
		Online:   true,
		Location: model.NewLocationContext(),
		Settings: model.DefaultSettings(),
		Chat:     coordinator.ChatView{Messages: []model.ChatMessage{}},
	}
}

// mountSession wires a MockSession behind the MockService
func mountSession(ms *MockService) *MockSession {
	session := new(MockSession)
	session.On("ID").Return(testSessionID).Maybe()
	session.On("Snapshot").Return(testSnapshot()).Maybe()
	ms.On("Session", testSessionID).Return(session, nil)
	return session
}

func serve(ms *MockService, method, path, body string) *httptest.ResponseRecorder {
	router := NewRouter(ms, nil, nil, nil, nil)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sessionPath(suffix string) string {
	return "/api/v1/sessions/" + testSessionID + suffix
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to get history x: %w", repository.ErrNotFound), http.StatusNotFound},
		{coordinator.ErrUnknownSuggestion, http.StatusNotFound},
		{coordinator.ErrUnknownOverlay, http.StatusNotFound},
		{chat.ErrUnknownInterest, http.StatusNotFound},
		{coordinator.ErrInvalidTap, http.StatusBadRequest},
		{coordinator.ErrConfirmationRequired, http.StatusBadRequest},
		{coordinator.ErrOffline, http.StatusConflict},
		{coordinator.ErrNotDiscovering, http.StatusConflict},
		{coordinator.ErrNoFix, http.StatusConflict},
		{coordinator.ErrChatClosed, http.StatusConflict},
		{coordinator.ErrEmptyChat, http.StatusConflict},
		{coordinator.ErrClosed, http.StatusConflict},
		{voice.ErrInvalidTransition, http.StatusConflict},
		{service.ErrShuttingDown, http.StatusServiceUnavailable},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestHandler_HealthCheck(t *testing.T) {
	rr := serve(new(MockService), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestHandler_OpenSession(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockSetup      func(*MockService)
		expectedStatus int
	}{
		{
			name: "defaults to online",
			body: "",
			mockSetup: func(ms *MockService) {
				session := new(MockSession)
				session.On("Snapshot").Return(testSnapshot())
				ms.On("OpenSession", mock.Anything, true).Return(session, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "offline at mount",
			body: `{"online": false}`,
			mockSetup: func(ms *MockService) {
				session := new(MockSession)
				session.On("Snapshot").Return(testSnapshot())
				ms.On("OpenSession", mock.Anything, false).Return(session, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid body",
			body:           `{"online":`,
			mockSetup:      func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "shutting down",
			body: `{}`,
			mockSetup: func(ms *MockService) {
				ms.On("OpenSession", mock.Anything, true).Return(nil, service.ErrShuttingDown)
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := new(MockService)
			tt.mockSetup(ms)

			rr := serve(ms, "POST", "/api/v1/sessions", tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if rr.Code == http.StatusCreated {
				var snap coordinator.Snapshot
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
				assert.Equal(t, testSessionID, snap.ID)
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestHandler_GetSession(t *testing.T) {
	ms := new(MockService)
	mountSession(ms)
	ms.On("Session", "missing").Return(nil, service.ErrSessionNotFound)

	rr := serve(ms, "GET", sessionPath(""), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	rr = serve(ms, "GET", "/api/v1/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_CloseSession(t *testing.T) {
	ms := new(MockService)
	ms.On("CloseSession", testSessionID).Return(nil)
	ms.On("CloseSession", "missing").Return(service.ErrSessionNotFound)

	assert.Equal(t, http.StatusNoContent, serve(ms, "DELETE", sessionPath(""), "").Code)
	assert.Equal(t, http.StatusNotFound, serve(ms, "DELETE", "/api/v1/sessions/missing", "").Code)
}

func TestHandler_Position(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		sessionSetup   func(*MockSession)
		expectedStatus int
	}{
		{
			name: "valid fix",
			body: `{"lat": 40.7934, "lng": -77.86}`,
			sessionSetup: func(s *MockSession) {
				s.On("Position", mock.Anything, model.Coordinate{Lat: 40.7934, Lng: -77.86}).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing lng",
			body:           `{"lat": 40.7934}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "out of range",
			body:           `{"lat": 91, "lng": 0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "session closed",
			body: `{"lat": 0, "lng": 0}`,
			sessionSetup: func(s *MockSession) {
				s.On("Position", mock.Anything, model.Coordinate{}).Return(coordinator.ErrClosed)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := new(MockService)
			session := mountSession(ms)
			if tt.sessionSetup != nil {
				tt.sessionSetup(session)
			}

			rr := serve(ms, "POST", sessionPath("/position"), tt.body)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			session.AssertExpectations(t)
		})
	}
}

func TestHandler_SensorInputs(t *testing.T) {
	ms := new(MockService)
	session := mountSession(ms)
	session.On("PositionError", mock.Anything, 1, "User denied Geolocation").Return(nil)
	session.On("Connectivity", mock.Anything, false).Return(nil)

	rr := serve(ms, "POST", sessionPath("/position/error"), `{"code": 1, "message": "User denied Geolocation"}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(ms, "POST", sessionPath("/connectivity"), `{"online": false}`)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(ms, "POST", sessionPath("/connectivity"), `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	session.AssertExpectations(t)
}

func TestHandler_TapMap(t *testing.T) {
	tests := []struct {
		name           string
		tapErr         error
		expectedStatus int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"not discovering", coordinator.ErrNotDiscovering, http.StatusConflict},
		{"outside the map", coordinator.ErrInvalidTap, http.StatusBadRequest},
		{"offline", coordinator.ErrOffline, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := new(MockService)
			session := mountSession(ms)
			probe := model.NewProbe(model.Coordinate{Lat: 40.79, Lng: -77.86})
			session.On("TapMap", 0.5, 0.25).Return(probe, tt.tapErr)

			rr := serve(ms, "POST", sessionPath("/map/tap"), `{"x": 0.5, "y": 0.25}`)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.tapErr == nil {
				var got model.POICandidate
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
				assert.Equal(t, probe.Name, got.Name)
			}
		})
	}
}

func TestHandler_POIAndOverlayActions(t *testing.T) {
	ms := new(MockService)
	session := mountSession(ms)
	session.On("SetDiscovery", true).Return()
	session.On("DismissPOI").Return()
	session.On("GoPOI").Return()
	session.On("ExplorePOI").Return(coordinator.ErrNoPOI)
	session.On("SelectSuggestion", 1).Return(nil)
	session.On("SetOverlay", "settings", true).Return(nil)
	session.On("SetOverlay", "map", true).Return(coordinator.ErrUnknownOverlay)
	session.On("UpdateSettings", model.Settings{ProximityAlerts: true, EnhancedAI: true}).Return()

	tests := []struct {
		method, path, body string
		expectedStatus     int
	}{
		{"PUT", "/discovery", `{"active": true}`, http.StatusOK},
		{"POST", "/poi/dismiss", "", http.StatusOK},
		{"POST", "/poi/go", "", http.StatusOK},
		{"POST", "/poi/explore", "", http.StatusConflict},
		{"POST", "/suggestions/1/select", "", http.StatusOK},
		{"POST", "/suggestions/x/select", "", http.StatusNotFound},
		{"PUT", "/overlays/settings", `{"open": true}`, http.StatusOK},
		{"PUT", "/overlays/map", `{"open": true}`, http.StatusNotFound},
		{"PUT", "/settings", `{"enhanced_ai": true}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := serve(ms, tt.method, sessionPath(tt.path), tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
	session.AssertExpectations(t)
}

func TestHandler_ChatActions(t *testing.T) {
	ms := new(MockService)
	session := mountSession(ms)
	session.On("OpenChat").Return()
	session.On("CloseChat").Return()
	session.On("SendChat", "Where can I eat?").Return(nil)
	session.On("ClearChat", false).Return(coordinator.ErrConfirmationRequired)
	session.On("ClearChat", true).Return(nil)
	session.On("SuggestSpots").Return(coordinator.ErrChatClosed)
	session.On("ToggleInterest", "food").Return(nil)
	session.On("ToggleInterest", "sports").Return(chat.ErrUnknownInterest)
	session.On("SetPreference", "vegan").Return(nil)
	session.On("SetChatLocation", "Downtown, Lisbon").Return(nil)

	tests := []struct {
		method, path, body string
		expectedStatus     int
	}{
		{"POST", "/chat/open", "", http.StatusOK},
		{"POST", "/chat/close", "", http.StatusOK},
		{"POST", "/chat/messages", `{"text": "Where can I eat?"}`, http.StatusOK},
		{"DELETE", "/chat/messages", "", http.StatusBadRequest},
		{"DELETE", "/chat/messages?confirm=true", "", http.StatusOK},
		{"POST", "/chat/suggest-spots", "", http.StatusConflict},
		{"PUT", "/chat/interests/food", "", http.StatusOK},
		{"PUT", "/chat/interests/sports", "", http.StatusNotFound},
		{"PUT", "/chat/preference", `{"text": "vegan"}`, http.StatusOK},
		{"PUT", "/chat/location", `{"label": "Downtown, Lisbon"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := serve(ms, tt.method, sessionPath(tt.path), tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
	session.AssertExpectations(t)
}

func TestHandler_History(t *testing.T) {
	saved := model.ChatSession{ID: "h1", Title: "Lunch in San Francisco", Messages: []model.ChatMessage{}}

	t.Run("list", func(t *testing.T) {
		ms := new(MockService)
		ms.On("ListHistory", mock.Anything).Return([]model.ChatSession{saved}, nil)

		rr := serve(ms, "GET", "/api/v1/history", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var resp model.HistoryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, "h1", resp.Sessions[0].ID)
	})

	t.Run("list failure is not leaked", func(t *testing.T) {
		ms := new(MockService)
		ms.On("ListHistory", mock.Anything).Return(nil, errors.New("pq: connection refused"))

		rr := serve(ms, "GET", "/api/v1/history", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "pq:")
	})

	t.Run("archive", func(t *testing.T) {
		ms := new(MockService)
		ms.On("ArchiveChat", mock.Anything, testSessionID).Return(&saved, nil)

		rr := serve(ms, "POST", sessionPath("/chat/archive"), "")
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("archive empty", func(t *testing.T) {
		ms := new(MockService)
		ms.On("ArchiveChat", mock.Anything, testSessionID).Return(nil, coordinator.ErrEmptyChat)

		rr := serve(ms, "POST", sessionPath("/chat/archive"), "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("load", func(t *testing.T) {
		ms := new(MockService)
		mountSession(ms)
		ms.On("LoadHistory", mock.Anything, testSessionID, "h1").Return(nil)
		ms.On("LoadHistory", mock.Anything, testSessionID, "nope").
			Return(fmt.Errorf("failed to get history nope: %w", repository.ErrNotFound))

		assert.Equal(t, http.StatusOK, serve(ms, "POST", sessionPath("/history/h1/load"), "").Code)
		assert.Equal(t, http.StatusNotFound, serve(ms, "POST", sessionPath("/history/nope/load"), "").Code)
	})
}

func TestHandler_EventsWithoutHub(t *testing.T) {
	rr := serve(new(MockService), "GET", sessionPath("/events"), "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandler_StatsWithoutCollector(t *testing.T) {
	rr := serve(new(MockService), "GET", "/api/v1/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
