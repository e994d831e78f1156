package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidTransition is returned when an action is not valid in the current status
	ErrInvalidTransition = errors.New("voice: invalid state transition")
	// ErrClosed is returned once the session has terminated
	ErrClosed = errors.New("voice: session closed")
)

const (
	// SampleRate of the captured PCM16 mono audio
	SampleRate = 16000
	// DefaultChunkSamples is the number of samples forwarded per channel send
	DefaultChunkSamples = 4096
	// DefaultGraceDelay is the pause between end of speech and delivery
	DefaultGraceDelay = 800 * time.Millisecond
)

// Message is one server message of the streaming channel
type Message struct {
	Transcript   string
	TurnComplete bool
}

// Channel is an open bidirectional transcription stream
type Channel interface {
	// Send forwards one chunk of raw PCM16 audio
	Send(chunk []byte) error
	// Recv blocks until the next server message; it fails once the channel is closed
	Recv() (Message, error)
	Close() error
}

// Dialer opens streaming channels
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// Microphone is an acquired audio capture device
type Microphone interface {
	// Frames yields captured PCM16 little-endian audio
	Frames() <-chan []byte
	// Stop ends capture
	Stop() error
	// Release frees the audio hardware context
	Release() error
}

// Callbacks receive the session's observable changes. They run on the
// session goroutine and must not call back into the session synchronously.
type Callbacks struct {
	OnStatus     func(Status)
	OnTranscript func(transcript string)
	OnComplete   func(transcript string)
	OnCancel     func()
}

// Config holds voice session tunables
type Config struct {
	ChunkSamples int
	GraceDelay   time.Duration
	Logger       *zap.Logger
}

type eventKind int

const (
	evOpened eventKind = iota
	evFragment
	evTurnComplete
	evChannelError
	evFinish
	evCancel
)

type event struct {
	kind    eventKind
	channel Channel
	text    string
	err     error
	reply   chan error
}

// Session is a single live transcription attempt.
// All state transitions happen on one goroutine fed by the events channel;
// audio forwarding and message reception run as separate tasks joined at teardown.
type Session struct {
	cfg    Config
	dialer Dialer
	mic    Microphone
	cb     Callbacks
	logger *zap.Logger

	mu         sync.RWMutex
	status     Status
	transcript strings.Builder

	events   chan event
	quit     chan struct{}
	done     chan struct{}
	ioCtx    context.Context
	ioCancel context.CancelFunc

	// owned by the run loop
	channel Channel
	loops   sync.WaitGroup
	dialing sync.WaitGroup

	cancelOnce sync.Once
}

// Start runs a session over an already capturing mic. The channel is dialed
// in the background; the session starts in StatusConnecting.
func Start(ctx context.Context, dialer Dialer, mic Microphone, cfg Config, cb Callbacks) *Session {
	if cfg.ChunkSamples <= 0 {
		cfg.ChunkSamples = DefaultChunkSamples
	}
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = DefaultGraceDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cb.OnStatus == nil {
		cb.OnStatus = func(Status) {}
	}
	if cb.OnTranscript == nil {
		cb.OnTranscript = func(string) {}
	}
	if cb.OnComplete == nil {
		cb.OnComplete = func(string) {}
	}
	if cb.OnCancel == nil {
		cb.OnCancel = func() {}
	}

	s := &Session{
		cfg:    cfg,
		dialer: dialer,
		mic:    mic,
		cb:     cb,
		logger: logger,
		status: StatusConnecting,
		events: make(chan event),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.ioCtx, s.ioCancel = context.WithCancel(ctx)

	go s.run(ctx)
	return s
}

// Status returns the current lifecycle status
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Transcript returns the transcript accumulated so far
func (s *Session) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript.String()
}

// Done is closed when the session has terminated and released its resources
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finish is the user's "finished speaking" action. It is accepted only
// while listening with a non-blank transcript.
func (s *Session) Finish() error {
	return s.request(evFinish)
}

// Cancel stops capture, closes the channel and releases the audio hardware,
// then fires OnCancel. Valid only while connecting or listening.
func (s *Session) Cancel() error {
	return s.request(evCancel)
}

func (s *Session) request(kind eventKind) error {
	reply := make(chan error, 1)
	select {
	case s.events <- event{kind: kind, reply: reply}:
	case <-s.done:
		return ErrClosed
	}
	return <-reply
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	s.dialing.Add(1)
	go s.dial()

	var grace <-chan time.Time
	for {
		select {
		case ev := <-s.events:
			next, finished := s.handle(ev)
			if finished {
				return
			}
			if next != nil {
				grace = next
			}

		case <-grace:
			if err := s.teardown(); err != nil {
				s.logger.Warn("Voice teardown incomplete", zap.Error(err))
			}
			transcript := strings.TrimSpace(s.Transcript())
			s.setStatus(StatusTerminated)
			s.cb.OnComplete(transcript)
			return

		case <-ctx.Done():
			s.abort(ctx.Err())
			return
		}
	}
}

// handle applies one event. It returns a grace timer when entering
// processing and finished=true once the session has terminated.
func (s *Session) handle(ev event) (<-chan time.Time, bool) {
	status := s.Status()

	switch ev.kind {
	case evOpened:
		if ev.err == nil && ev.channel == nil {
			ev.err = errors.New("dialer returned no channel")
		}
		if ev.err != nil {
			s.abort(fmt.Errorf("open channel: %w", ev.err))
			return nil, true
		}
		s.channel = ev.channel
		s.setStatus(StatusListening)
		s.loops.Add(2)
		go s.sendLoop(ev.channel)
		go s.recvLoop(ev.channel)

	case evFragment:
		if status != StatusListening {
			return nil, false
		}
		s.mu.Lock()
		s.transcript.WriteString(ev.text)
		transcript := s.transcript.String()
		s.mu.Unlock()
		s.cb.OnTranscript(transcript)

	case evTurnComplete:
		if status == StatusListening && s.hasTranscript() {
			return s.enterProcessing(), false
		}

	case evChannelError:
		// A failure after the turn completed does not discard the transcript
		if status == StatusListening {
			s.abort(ev.err)
			return nil, true
		}

	case evFinish:
		if status != StatusListening || !s.hasTranscript() {
			ev.reply <- ErrInvalidTransition
			return nil, false
		}
		ev.reply <- nil
		return s.enterProcessing(), false

	case evCancel:
		if status != StatusConnecting && status != StatusListening {
			ev.reply <- ErrInvalidTransition
			return nil, false
		}
		err := s.teardown()
		s.setStatus(StatusTerminated)
		s.fireCancel()
		ev.reply <- err
		return nil, true
	}

	return nil, false
}

func (s *Session) enterProcessing() <-chan time.Time {
	s.setStatus(StatusProcessing)
	return time.After(s.cfg.GraceDelay)
}

func (s *Session) hasTranscript() bool {
	return strings.TrimSpace(s.Transcript()) != ""
}

// abort terminates abnormally; the caller sees it as a cancellation
func (s *Session) abort(cause error) {
	s.logger.Warn("Voice session aborted", zap.Error(cause))
	if err := s.teardown(); err != nil {
		s.logger.Warn("Voice teardown incomplete", zap.Error(err))
	}
	s.setStatus(StatusTerminated)
	s.fireCancel()
}

// teardown runs every release step even when an earlier one fails
func (s *Session) teardown() error {
	close(s.quit)
	s.ioCancel()

	var errs []error
	if err := s.mic.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop capture: %w", err))
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if err := s.mic.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release audio: %w", err))
	}

	// a channel resolved after quit is closed by dial before it returns
	s.dialing.Wait()
	s.loops.Wait()
	return errors.Join(errs...)
}

func (s *Session) fireCancel() {
	s.cancelOnce.Do(s.cb.OnCancel)
}

func (s *Session) setStatus(next Status) {
	s.mu.Lock()
	prev := s.status
	s.status = next
	s.mu.Unlock()

	if prev != next {
		s.logger.Debug("Voice status", zap.Stringer("from", prev), zap.Stringer("to", next))
		s.cb.OnStatus(next)
	}
}

// post delivers an event unless the session is being torn down
func (s *Session) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.quit:
		return false
	}
}

func (s *Session) dial() {
	defer s.dialing.Done()

	ch, err := s.dialer.Dial(s.ioCtx)
	if !s.post(event{kind: evOpened, channel: ch, err: err}) && ch != nil {
		// Torn down while dialing: the channel never carried audio
		if cerr := ch.Close(); cerr != nil {
			s.logger.Warn("Failed to close late channel", zap.Error(cerr))
		}
	}
}

func (s *Session) sendLoop(ch Channel) {
	defer s.loops.Done()

	frames := s.mic.Frames()
	c := newChunker(s.cfg.ChunkSamples * 2)
	for {
		select {
		case <-s.quit:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			for _, chunk := range c.push(frame) {
				select {
				case <-s.quit:
					return
				default:
				}
				if err := ch.Send(chunk); err != nil {
					s.post(event{kind: evChannelError, err: fmt.Errorf("send audio: %w", err)})
					return
				}
			}
		}
	}
}

func (s *Session) recvLoop(ch Channel) {
	defer s.loops.Done()

	for {
		msg, err := ch.Recv()
		if err != nil {
			s.post(event{kind: evChannelError, err: fmt.Errorf("receive: %w", err)})
			return
		}
		if msg.Transcript != "" {
			if !s.post(event{kind: evFragment, text: msg.Transcript}) {
				return
			}
		}
		if msg.TurnComplete {
			if !s.post(event{kind: evTurnComplete}) {
				return
			}
		}
	}
}

// chunker splits a PCM byte stream into fixed-size chunks
type chunker struct {
	size int
	buf  []byte
}

func newChunker(size int) *chunker {
	return &chunker{size: size, buf: make([]byte, 0, size)}
}

func (c *chunker) push(frame []byte) [][]byte {
	c.buf = append(c.buf, frame...)
	var out [][]byte
	for len(c.buf) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.buf[:c.size])
		out = append(out, chunk)
		c.buf = append(c.buf[:0], c.buf[c.size:]...)
	}
	return out
}
