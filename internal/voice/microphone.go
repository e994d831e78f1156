package voice

import (
	"sync"
	"sync/atomic"
)

// StreamMicrophone is a Microphone fed with PCM16 frames pushed by a remote
// device, e.g. binary websocket messages.
type StreamMicrophone struct {
	frames   chan []byte
	stopped  chan struct{}
	stopOnce sync.Once
	released atomic.Bool
	dropped  atomic.Uint64
}

// NewStreamMicrophone creates a microphone buffering up to buffer frames
func NewStreamMicrophone(buffer int) *StreamMicrophone {
	if buffer <= 0 {
		buffer = 32
	}
	return &StreamMicrophone{
		frames:  make(chan []byte, buffer),
		stopped: make(chan struct{}),
	}
}

// Write queues one captured frame. Frames are dropped while the buffer is
// full so the producer never blocks.
func (m *StreamMicrophone) Write(pcm []byte) error {
	select {
	case <-m.stopped:
		return ErrClosed
	default:
	}

	frame := make([]byte, len(pcm))
	copy(frame, pcm)

	select {
	case m.frames <- frame:
	default:
		m.dropped.Add(1)
	}
	return nil
}

// Frames implements Microphone
func (m *StreamMicrophone) Frames() <-chan []byte {
	return m.frames
}

// Stop implements Microphone
func (m *StreamMicrophone) Stop() error {
	m.stopOnce.Do(func() { close(m.stopped) })
	return nil
}

// Release implements Microphone
func (m *StreamMicrophone) Release() error {
	m.released.Store(true)
	return nil
}

// Stopped reports whether capture has ended
func (m *StreamMicrophone) Stopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// Released reports whether the audio context was released
func (m *StreamMicrophone) Released() bool {
	return m.released.Load()
}

// Dropped returns the number of frames discarded on a full buffer
func (m *StreamMicrophone) Dropped() uint64 {
	return m.dropped.Load()
}
