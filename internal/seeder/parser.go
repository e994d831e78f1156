package seeder

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/alexivanou/roamai/internal/model"
)

const (
	historyFile = "history.json"
	historyZip  = "history.zip"

	defaultBatchSize = 100
)

// ErrNoFixtures is returned when the data directory has no history file
var ErrNoFixtures = errors.New("no history fixtures found")

// Parser reads saved-conversation fixtures
type Parser struct {
	dataDir   string
	batchSize int
}

// NewParser creates a new parser instance with config
func NewParser(dataDir string, seederCfg config.SeederConfig) *Parser {
	batchSize := seederCfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Parser{
		dataDir:   dataDir,
		batchSize: batchSize,
	}
}

// ProcessHistory streams history.json (or the first .json inside
// history.zip) and hands valid conversations to callback in batches.
// It returns the number of conversations accepted and skipped.
func (p *Parser) ProcessHistory(callback func(batch []model.ChatSession) error) (accepted, skipped int, err error) {
	zipPath := filepath.Join(p.dataDir, historyZip)
	if _, err := os.Stat(zipPath); err == nil {
		r, err := zip.OpenReader(zipPath)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to open zip: %w", err)
		}
		defer r.Close()

		for _, f := range r.File {
			if !strings.HasSuffix(f.Name, ".json") {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return 0, 0, fmt.Errorf("failed to open file in zip: %w", err)
			}
			defer rc.Close()
			return p.ProcessHistoryFrom(rc, callback)
		}
		return 0, 0, fmt.Errorf("no json file found in zip")
	}

	file, err := os.Open(filepath.Join(p.dataDir, historyFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0, ErrNoFixtures
		}
		return 0, 0, fmt.Errorf("failed to open %s: %w", historyFile, err)
	}
	defer file.Close()

	return p.ProcessHistoryFrom(file, callback)
}

// ProcessHistoryFrom decodes a JSON array of conversations element by element
func (p *Parser) ProcessHistoryFrom(reader io.Reader, callback func(batch []model.ChatSession) error) (accepted, skipped int, err error) {
	dec := json.NewDecoder(reader)

	tok, err := dec.Token()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read history: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, 0, fmt.Errorf("history must be a JSON array")
	}

	seen := make(map[string]bool)
	batch := make([]model.ChatSession, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := callback(batch); err != nil {
			return err
		}
		batch = make([]model.ChatSession, 0, p.batchSize)
		return nil
	}

	for dec.More() {
		var session model.ChatSession
		if err := dec.Decode(&session); err != nil {
			return accepted, skipped, fmt.Errorf("failed to decode conversation %d: %w", accepted+skipped, err)
		}

		// Duplicate ids keep the first occurrence
		if !normalize(&session) || seen[session.ID] {
			skipped++
			continue
		}
		seen[session.ID] = true
		batch = append(batch, session)
		accepted++

		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return accepted, skipped, err
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return accepted, skipped, fmt.Errorf("failed to read history: %w", err)
	}
	if err := flush(); err != nil {
		return accepted, skipped, err
	}
	return accepted, skipped, nil
}

// normalize validates a fixture and fills derived fields. It reports false
// for entries that cannot be stored.
func normalize(s *model.ChatSession) bool {
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	if s.ID == "" || s.Title == "" {
		return false
	}
	for _, m := range s.Messages {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			return false
		}
	}
	if s.Snippet == "" {
		for _, m := range s.Messages {
			if m.Role == model.RoleUser {
				s.Snippet = m.Text
				break
			}
		}
	}
	if at, err := time.Parse(model.HistoryDateLayout, s.Date); err == nil {
		s.CreatedAt = at.UTC()
	}
	if s.Date == "" {
		s.CreatedAt = time.Now().UTC()
		s.Date = s.CreatedAt.Format(model.HistoryDateLayout)
	}
	return true
}

// DefaultHistory returns the sample conversations a new store starts with
func DefaultHistory() []model.ChatSession {
	sessions := []model.ChatSession{
		{
			ID:      "1",
			Title:   "Historical Tour of State College",
			Snippet: "What are the oldest buildings in the university area?",
			Date:    "Oct 24, 2023",
			Messages: []model.ChatMessage{
				{Role: model.RoleUser, Text: "What are the oldest buildings in the university area?"},
				{Role: model.RoleAssistant, Text: "The oldest building is Old Main, completed in 1863. It remains the centerpiece of the campus today."},
			},
		},
		{
			ID:      "2",
			Title:   "Lunch in San Francisco",
			Snippet: "Recommend a good sushi place near Market St.",
			Date:    "Oct 20, 2023",
			Messages: []model.ChatMessage{
				{Role: model.RoleUser, Text: "Recommend a good sushi place near Market St."},
				{Role: model.RoleAssistant, Text: "I recommend Akiko’s Restaurant. It’s highly rated for its authentic experience and fresh omakase."},
			},
		},
	}
	for i := range sessions {
		normalize(&sessions[i])
	}
	return sessions
}
