package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gocollab/internal/document"
	"github.com/Tyrowin/gocollab/internal/protocol"
	"github.com/Tyrowin/gocollab/internal/server"
	"github.com/Tyrowin/gocollab/internal/storage"
)

func TestInspectPrintsPersistedState(t *testing.T) {
	ctx := context.Background()
	cfg := *server.NewConfig()
	cfg.Storage.DataDir = t.TempDir()

	store, err := storage.Open(ctx, cfg.Storage)
	require.NoError(t, err)
	log := storage.NewMessageLog(store)
	require.NoError(t, log.AddUser(ctx, storage.User{Name: "Ann", Email: "ann@example.com"}))
	require.NoError(t, log.Append(ctx, protocol.ChatMessage{Author: "Ann", Content: "hi", Timestamp: "2024-01-01T00:00:00.000Z"}))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	require.NoError(t, inspect(ctx, cfg, &out))

	var report inspectReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, []storage.User{{Name: "Ann", Email: "ann@example.com"}}, report.Users)
	require.Len(t, report.Messages, 1)
	assert.Equal(t, "hi", report.Messages[0].Content)
	assert.Equal(t, document.DefaultWelcome, report.Document.Content)

	_, err = os.Stat(filepath.Join(cfg.Storage.DataDir, storage.DocumentKey+".json"))
	assert.ErrorIs(t, err, fs.ErrNotExist, "inspect must not write the default document")
}

func TestUserAddCommand(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"user", "add", "--data-dir", dir, "--name", "Bob", "--email", "bob@example.com"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "added Bob <bob@example.com>")

	out.Reset()
	rootCmd.SetArgs([]string{"user", "add", "--data-dir", dir, "--name", "Robert", "--email", "BOB@example.com"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "already exists")
	assert.NotContains(t, out.String(), "added")

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	users, err := storage.NewMessageLog(store).Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []storage.User{{Name: "Bob", Email: "bob@example.com"}}, users)
}
