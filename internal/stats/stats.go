package stats

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/jmoiron/sqlx"
)

// Stats is a point-in-time report of the service
type Stats struct {
	Timestamp time.Time    `json:"timestamp"`
	Memory    MemoryStats  `json:"memory"`
	History   HistoryStats `json:"history"`
	Sessions  SessionStats `json:"sessions"`
	Runtime   RuntimeStats `json:"runtime"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	NumGC      uint32 `json:"num_gc"`
}

// HistoryStats describes the saved-conversation store
type HistoryStats struct {
	Store                 string  `json:"store"`
	SizeBytes             int64   `json:"size_bytes,omitempty"`
	Conversations         int64   `json:"conversations"`
	Messages              int64   `json:"messages"`
	AvgMessagesPerSession float64 `json:"avg_messages_per_session"`
}

// SessionStats describes the mounted device sessions
type SessionStats struct {
	Active int `json:"active"`
}

// SessionCounter reports the number of mounted device sessions
type SessionCounter interface {
	ActiveSessions() int
}

type RuntimeStats struct {
	NumGoroutines int   `json:"num_goroutines"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

type Collector struct {
	db        *sqlx.DB
	config    config.DBConfig
	sessions  SessionCounter
	startTime time.Time
}

// NewCollector creates a collector. sessions may be nil when no service
// runs in this process, e.g. in the stats CLI.
func NewCollector(db *sqlx.DB, cfg config.DBConfig, sessions SessionCounter) *Collector {
	return &Collector{
		db:        db,
		config:    cfg,
		sessions:  sessions,
		startTime: time.Now(),
	}
}

func (c *Collector) Collect(ctx context.Context) (*Stats, error) {
	history, err := c.collectHistoryStats(ctx)
	if err != nil {
		return nil, err
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := &Stats{
		Timestamp: time.Now(),
		Memory:    MemoryStats{Alloc: m.Alloc, TotalAlloc: m.TotalAlloc, NumGC: m.NumGC},
		History:   history,
		Runtime: RuntimeStats{
			NumGoroutines: runtime.NumGoroutine(),
			UptimeSeconds: int64(time.Since(c.startTime).Seconds()),
		},
	}
	if c.sessions != nil {
		stats.Sessions.Active = c.sessions.ActiveSessions()
	}
	return stats, nil
}

func (c *Collector) collectHistoryStats(ctx context.Context) (HistoryStats, error) {
	stats := HistoryStats{Store: string(c.config.Type)}

	var counts struct {
		Conversations int64 `db:"conversations"`
		Messages      int64 `db:"messages"`
	}
	query := `SELECT
		(SELECT COUNT(*) FROM chat_sessions) AS conversations,
		(SELECT COUNT(*) FROM chat_messages) AS messages`
	if err := c.db.GetContext(ctx, &counts, query); err != nil {
		return stats, fmt.Errorf("failed to count history: %w", err)
	}
	stats.Conversations = counts.Conversations
	stats.Messages = counts.Messages
	if counts.Conversations > 0 {
		stats.AvgMessagesPerSession = float64(counts.Messages) / float64(counts.Conversations)
	}

	// size is informational; a store that cannot report it leaves zero
	sizeQuery := "SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()"
	if c.config.Type == config.DBTypePostgreSQL {
		sizeQuery = "SELECT pg_total_relation_size('chat_sessions') + pg_total_relation_size('chat_messages')"
	}
	_ = c.db.GetContext(ctx, &stats.SizeBytes, sizeQuery)

	return stats, nil
}
