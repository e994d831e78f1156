package coordinator

import (
	"errors"

	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/voice"
	"go.uber.org/zap"
)

// VoiceNotify receives voice progress for the capturing device
type VoiceNotify func(status voice.Status, transcript string)

// StartVoice starts a live transcription over mic. On completion the
// transcript seeds a fresh chat; on cancellation nothing else changes.
func (c *Coordinator) StartVoice(mic voice.Microphone, notify VoiceNotify) error {
	if notify == nil {
		notify = func(voice.Status, string) {}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.voice != nil {
		return ErrVoiceActive
	}

	// callbacks take c.mu before reading session
	var session *voice.Session
	cb := voice.Callbacks{
		OnStatus: func(s voice.Status) {
			c.mu.Lock()
			transcript := c.voiceTranscript
			if c.voice == session {
				c.voiceStatus = s
			}
			c.mu.Unlock()
			notify(s, transcript)
			c.publish(events.TypeVoice)
		},
		OnTranscript: func(t string) {
			c.mu.Lock()
			status := c.voiceStatus
			if c.voice == session {
				c.voiceTranscript = t
			}
			c.mu.Unlock()
			notify(status, t)
			c.publish(events.TypeVoice)
		},
		OnComplete: func(t string) {
			c.mu.Lock()
			if c.voice != session {
				c.mu.Unlock()
				return
			}
			c.clearVoiceLocked()
			if !c.closed {
				c.openChatLocked(t, nil)
			}
			c.mu.Unlock()

			c.logger.Info("Voice capture completed", zap.Int("length", len(t)))
			c.publish(events.TypeChat)
		},
		OnCancel: func() {
			c.mu.Lock()
			if c.voice == session {
				c.clearVoiceLocked()
			}
			c.mu.Unlock()

			c.logger.Info("Voice capture cancelled")
			c.publish(events.TypeVoice)
		},
	}

	session = voice.Start(c.ctx, c.dialer, mic, voice.Config{
		ChunkSamples: c.cfg.VoiceChunkSamples,
		GraceDelay:   c.cfg.VoiceGraceDelay,
		Logger:       c.logger,
	}, cb)
	c.voice = session
	c.voiceStatus = voice.StatusConnecting
	c.voiceTranscript = ""
	return nil
}

func (c *Coordinator) clearVoiceLocked() {
	c.voice = nil
	c.voiceStatus = voice.StatusTerminated
	c.voiceTranscript = ""
}

func (c *Coordinator) activeVoice() (*voice.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voice == nil {
		return nil, ErrNoVoice
	}
	return c.voice, nil
}

// FinishVoice is the "finished speaking" action
func (c *Coordinator) FinishVoice() error {
	session, err := c.activeVoice()
	if err != nil {
		return err
	}
	return session.Finish()
}

// CancelVoice cancels the active capture and waits for its resources to be released
func (c *Coordinator) CancelVoice() error {
	session, err := c.activeVoice()
	if err != nil {
		return err
	}
	err = session.Cancel()
	switch {
	case err == nil, errors.Is(err, voice.ErrClosed):
		return nil
	case errors.Is(err, voice.ErrInvalidTransition):
		return err
	default:
		c.logger.Warn("Voice teardown incomplete", zap.Error(err))
		return nil
	}
}

// VoiceDone returns a channel closed when the active capture ends, or nil
func (c *Coordinator) VoiceDone() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.voice == nil {
		return nil
	}
	return c.voice.Done()
}
