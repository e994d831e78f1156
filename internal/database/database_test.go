package database

import (
	"context"
	"testing"

	"github.com/alexivanou/roamai/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_Memory(t *testing.T) {
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: "migrate_" + uuid.NewString()}
	db, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, cfg))
	// Second run is a no-op
	require.NoError(t, Migrate(db, cfg))

	var tables []string
	err = db.Select(&tables, "SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'chat_%' ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []string{"chat_messages", "chat_sessions"}, tables)
}

func TestMigrate_ForeignKeys(t *testing.T) {
	cfg := config.DBConfig{Type: config.DBTypeMemory, Name: "fk_" + uuid.NewString()}
	db, err := Connect(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db, cfg))

	_, err = db.Exec("INSERT INTO chat_messages (session_id, position, role, text) VALUES ('missing', 0, 'user', 'hi')")
	assert.Error(t, err)
}
