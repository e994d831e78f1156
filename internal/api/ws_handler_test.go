package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexivanou/roamai/internal/model"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandler_VoiceReportsDroppedFrames(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	ms := new(MockService)
	session := mountSession(ms)
	done := make(chan struct{})
	// the mic is never drained, so frames beyond its buffer are dropped
	session.On("StartVoice", mock.Anything, mock.Anything).Return(nil)
	session.On("VoiceDone").Return((<-chan struct{})(done))
	session.On("CancelVoice").Run(func(mock.Arguments) { close(done) }).Return(nil).Once()

	server := httptest.NewServer(NewRouter(ms, nil, nil, nil, zap.New(core)))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + sessionPath("/voice")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < micBuffer+5; i++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 8)))
	}
	require.NoError(t, conn.WriteJSON(model.VoiceControl{Type: model.VoiceCancel}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Microphone frames dropped").Len() == 1
	}, time.Second, 10*time.Millisecond)
	entry := logs.FilterMessage("Microphone frames dropped").All()[0]
	assert.Equal(t, uint64(5), entry.ContextMap()["frames"])
	session.AssertExpectations(t)
}

func TestHandler_VoiceNothingDropped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	ms := new(MockService)
	session := mountSession(ms)
	done := make(chan struct{})
	session.On("StartVoice", mock.Anything, mock.Anything).Return(nil)
	session.On("VoiceDone").Return((<-chan struct{})(done))
	session.On("FinishVoice").Run(func(mock.Arguments) { close(done) }).Return(nil).Once()

	server := httptest.NewServer(NewRouter(ms, nil, nil, nil, zap.New(core)))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + sessionPath("/voice")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 8)))
	require.NoError(t, conn.WriteJSON(model.VoiceControl{Type: model.VoiceFinish}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)

	assert.Never(t, func() bool {
		return logs.FilterMessage("Microphone frames dropped").Len() > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
	session.AssertExpectations(t)
}
