package database

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rorsim/gfxbridge/internal/config"
)

type row struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func TestOpenMemorySqlite_SharedByName(t *testing.T) {
	name := uuid.NewString()
	db, err := OpenMemorySqlite(name)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "a"}).Error)

	other, err := OpenMemorySqlite(uuid.NewString())
	require.NoError(t, err)
	assert.False(t, other.Migrator().HasTable(&row{}), "different name, different database")
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenMemorySqlite(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))
	require.NoError(t, db.Create(&row{Name: "dumped"}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	_, err = DumpMemoryDBToDisk(db, path)
	require.NoError(t, err)

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var got row
	require.NoError(t, disk.First(&got).Error)
	assert.Equal(t, "dumped", got.Name)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := OpenMemorySqlite(uuid.NewString())
	require.NoError(t, err)
	_, err = DumpMemoryDBToDisk(db, "")
	assert.Error(t, err)
}

func TestManager_FallsBackToSqlite(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(zerolog.New(&buf))

	// nothing listens on port 1
	err := m.Connect(config.PostgresConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "d"}, uuid.NewString())
	require.NoError(t, err)
	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
	assert.Contains(t, buf.String(), "trying SQLite")

	require.NoError(t, m.Migrate(&row{}))
	assert.True(t, m.DB.Migrator().HasTable(&row{}))
}

func TestManager_MigrateWithoutConnection(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Migrate(&row{}))
}
