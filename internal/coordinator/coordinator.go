// Package coordinator owns the state of one device companion session. It
// composes the sensor watcher, the AI gateway, the chat manager and the live
// voice session, and applies their asynchronous results in a consistent order.
package coordinator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/alexivanou/roamai/internal/chat"
	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/events"
	"github.com/alexivanou/roamai/internal/gateway"
	"github.com/alexivanou/roamai/internal/model"
	"github.com/alexivanou/roamai/internal/voice"
	"github.com/alexivanou/roamai/internal/watcher"
	"go.uber.org/zap"
)

var (
	ErrClosed               = errors.New("coordinator: session closed")
	ErrOffline              = errors.New("coordinator: device is offline")
	ErrNotDiscovering       = errors.New("coordinator: discovery mode is off")
	ErrNoFix                = errors.New("coordinator: no position fix yet")
	ErrInvalidTap           = errors.New("coordinator: tap outside the map")
	ErrNoPOI                = errors.New("coordinator: no point of interest selected")
	ErrUnknownSuggestion    = errors.New("coordinator: unknown suggestion")
	ErrChatClosed           = errors.New("coordinator: chat is not open")
	ErrEmptyChat            = errors.New("coordinator: conversation is empty")
	ErrConfirmationRequired = errors.New("coordinator: confirmation required")
	ErrUnknownOverlay       = errors.New("coordinator: unknown overlay")
	ErrVoiceActive          = errors.New("coordinator: voice capture already active")
	ErrNoVoice              = errors.New("coordinator: no voice capture active")
)

// Overlays that can be toggled independently
const (
	OverlayProfile  = "profile"
	OverlaySettings = "settings"
)

const publishTimeout = 2 * time.Second

// Options configure a Coordinator
type Options struct {
	ID        string
	Gateway   gateway.Gateway
	Dialer    voice.Dialer
	Publisher events.Publisher
	Config    config.SessionConfig
	// Online is the connectivity at mount
	Online bool
	Logger *zap.Logger

	// Jitter returns a value in [-1, 1); defaults to math/rand
	Jitter func() float64
	// Now defaults to time.Now
	Now func() time.Time
}

// Coordinator is the single owner of a device session's state
type Coordinator struct {
	id        string
	gw        gateway.Gateway
	dialer    voice.Dialer
	publisher events.Publisher
	cfg       config.SessionConfig
	logger    *zap.Logger
	jitter    func() float64
	now       func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	tasks    sync.WaitGroup
	watcher  *watcher.Watcher
	messages *chat.Sequence

	mu     sync.Mutex
	closed bool

	online          bool
	backOnline      bool
	backOnlineTimer *time.Timer

	coords       *model.Coordinate
	center       *model.Coordinate
	lastResolved *model.Coordinate
	denied       bool
	location     model.LocationContext
	geocodeSeq   uint64

	suggestions        []model.Suggestion
	suggestionsLoading bool
	suggestionCity     string
	pendingCity        string

	discovery   bool
	poi         *model.POICandidate
	identifying bool
	poiSeq      uint64

	chatOpen bool
	chat     *chat.Manager

	profileOpen  bool
	settingsOpen bool
	profile      model.UserProfile
	settings     model.Settings

	voice           *voice.Session
	voiceStatus     voice.Status
	voiceTranscript string
}

// New mounts a session: it starts the sensor watcher and is ready for input
func New(opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	jitter := opts.Jitter
	if jitter == nil {
		jitter = func() float64 { return rand.Float64()*2 - 1 }
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		id:        opts.ID,
		gw:        opts.Gateway,
		dialer:    opts.Dialer,
		publisher: publisher,
		cfg:       opts.Config,
		logger:    logger.With(zap.String("session_id", opts.ID)),
		jitter:    jitter,
		now:       now,
		ctx:       ctx,
		cancel:    cancel,
		messages:  chat.NewSequence(),
		online:    opts.Online,
		location:  model.NewLocationContext(),
		profile: model.UserProfile{
			Name:      opts.Config.UserName,
			AvatarURL: opts.Config.UserAvatarURL,
			Status:    model.StatusExploring,
		},
		settings: model.DefaultSettings(),
	}
	c.watcher = watcher.New(sensorHandler{c}, opts.Online, c.logger)
	return c
}

// ID returns the session identifier
func (c *Coordinator) ID() string {
	return c.id
}

// Close unmounts the session. Sensor subscriptions are released, an active
// voice capture is torn down and background calls are cancelled and awaited.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.backOnlineTimer != nil {
		c.backOnlineTimer.Stop()
	}
	session := c.voice
	c.mu.Unlock()

	c.watcher.Close()
	c.cancel()
	if session != nil {
		<-session.Done()
	}
	c.tasks.Wait()

	c.emit(events.TypeClosed, nil)
	c.logger.Info("Session closed")
}

// Wait blocks until every background call started so far has been applied
func (c *Coordinator) Wait() {
	c.tasks.Wait()
}

// spawnLocked runs fn in the background. Callers hold c.mu.
func (c *Coordinator) spawnLocked(fn func(ctx context.Context)) {
	if c.closed {
		return
	}
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		fn(c.ctx)
	}()
}

func (c *Coordinator) isOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// publish reports a state change with the current snapshot. It must not be
// called with c.mu held.
func (c *Coordinator) publish(t events.Type) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	snap := c.Snapshot()
	c.emit(t, snap)
}

func (c *Coordinator) emit(t events.Type, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	ev := events.Event{Type: t, SessionID: c.id, Payload: payload, Timestamp: c.now().UTC()}
	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.logger.Warn("Failed to publish event", zap.String("type", string(t)), zap.Error(err))
	}
}

// SetOverlay opens or closes the profile or settings overlay. Opening
// settings closes the profile.
func (c *Coordinator) SetOverlay(name string, open bool) error {
	c.mu.Lock()
	switch name {
	case OverlayProfile:
		c.profileOpen = open
	case OverlaySettings:
		c.settingsOpen = open
		if open {
			c.profileOpen = false
		}
	default:
		c.mu.Unlock()
		return ErrUnknownOverlay
	}
	c.mu.Unlock()

	c.publish(events.TypeOverlay)
	return nil
}

// UpdateSettings replaces the settings toggles
func (c *Coordinator) UpdateSettings(s model.Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	c.publish(events.TypeOverlay)
}
