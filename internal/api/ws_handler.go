package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alexivanou/roamai/internal/coordinator"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/voice"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	voiceWriteWait = 10 * time.Second
	// micBuffer is the number of PCM frames queued ahead of the channel
	micBuffer = 64
	// voiceUpdates is the number of status frames queued for the device
	voiceUpdates = 32
	// maxVoiceFrame bounds one inbound websocket message
	maxVoiceFrame = 1 << 16
)

// Events handles GET /api/v1/sessions/{id}/events (websocket)
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "event stream is not available", http.StatusServiceUnavailable)
		return
	}
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Event stream upgrade failed", zap.String("session_id", session.ID()), zap.Error(err))
		return
	}

	client := h.hub.NewClient(session.ID(), conn)

	// the first frame is the current state
	initial, err := json.Marshal(events.Event{
		Type:      events.TypeSession,
		SessionID: session.ID(),
		Payload:   session.Snapshot(),
		Timestamp: time.Now().UTC(),
	})
	if err == nil {
		client.Queue(initial)
	}
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	client.ReadPump()
}

// Voice handles GET /api/v1/sessions/{id}/voice (websocket). Binary messages
// carry PCM16 mono frames; text messages are {"type":"finish"|"cancel"}.
// The server pushes status frames and closes the socket once the capture ends.
func (h *Handler) Voice(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Voice upgrade failed", zap.String("session_id", session.ID()), zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxVoiceFrame)

	logger := h.logger.With(zap.String("session_id", session.ID()))
	updates := make(chan model.VoiceUpdate, voiceUpdates)
	push := func(u model.VoiceUpdate) {
		select {
		case updates <- u:
		default:
			logger.Debug("Voice update dropped", zap.String("type", u.Type))
		}
	}

	mic := voice.NewStreamMicrophone(micBuffer)
	notify := func(status voice.Status, transcript string) {
		push(model.VoiceUpdate{Type: model.VoiceStatus, Status: status.String(), Transcript: transcript})
	}
	if err := session.StartVoice(mic, notify); err != nil {
		writeVoiceFrame(conn, model.VoiceUpdate{Type: model.VoiceError, Error: err.Error()})
		writeVoiceClose(conn)
		return
	}
	done := session.VoiceDone()
	if done == nil {
		// ended before we could observe it
		closed := make(chan struct{})
		close(closed)
		done = closed
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case u := <-updates:
				if !writeVoiceFrame(conn, u) {
					return
				}
			case <-done:
				for {
					select {
					case u := <-updates:
						writeVoiceFrame(conn, u)
					default:
						writeVoiceClose(conn)
						return
					}
				}
			}
		}
	}()

	h.readVoice(conn, session, mic, done, push, logger)
	<-writerDone

	if n := mic.Dropped(); n > 0 {
		logger.Warn("Microphone frames dropped", zap.Uint64("frames", n))
	}
}

type voiceSession interface {
	FinishVoice() error
	CancelVoice() error
}

// readVoice feeds the microphone until the socket closes. A device that
// disconnects mid-capture cancels it.
func (h *Handler) readVoice(conn *websocket.Conn, session voiceSession, mic *voice.StreamMicrophone,
	done <-chan struct{}, push func(model.VoiceUpdate), logger *zap.Logger) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			if err := session.CancelVoice(); err != nil &&
				!errors.Is(err, coordinator.ErrNoVoice) && !errors.Is(err, voice.ErrInvalidTransition) {
				logger.Warn("Failed to cancel voice capture", zap.Error(err))
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			// frames after capture stopped are discarded until the socket closes
			_ = mic.Write(data)

		case websocket.TextMessage:
			var ctl model.VoiceControl
			if err := json.Unmarshal(data, &ctl); err != nil {
				push(model.VoiceUpdate{Type: model.VoiceError, Error: "invalid control frame"})
				continue
			}
			var actionErr error
			switch ctl.Type {
			case model.VoiceFinish:
				actionErr = session.FinishVoice()
			case model.VoiceCancel:
				actionErr = session.CancelVoice()
			default:
				actionErr = errors.New("unknown control " + ctl.Type)
			}
			if actionErr != nil {
				push(model.VoiceUpdate{Type: model.VoiceError, Error: actionErr.Error()})
			}
		}
	}
}

func writeVoiceFrame(conn *websocket.Conn, u model.VoiceUpdate) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(voiceWriteWait))
	return conn.WriteJSON(u) == nil
}

func writeVoiceClose(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(voiceWriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "voice capture ended"))
	conn.Close()
}
