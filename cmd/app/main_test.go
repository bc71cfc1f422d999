package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sillsdev/liftmerge/internal/application"
	"github.com/sillsdev/liftmerge/internal/domain"
)

func TestWithQuerySkipsEmpty(t *testing.T) {
	assert.Equal(t, "/api/entries", withQuery("/api/entries", map[string]string{"q": " ", "limit": ""}))
	assert.Equal(t, "/api/entries?limit=5&q=ny", withQuery("/api/entries", map[string]string{"q": "ny", "limit": limitParam(5)}))
	assert.Equal(t, "", limitParam(0))
}

func TestConfigSaveAndLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "uds", cfg.Transport)
	assert.Equal(t, defaultSocket, cfg.Socket)

	cfg.Transport = "local"
	cfg.DBPath = "/var/lib/liftmerge/lexicon.db"
	require.NoError(t, saveConfig(cfg))

	got, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "local", got.Transport)
	assert.Equal(t, "/var/lib/liftmerge/lexicon.db", got.DBPath)
	assert.Equal(t, defaultServer, got.Server)
}

func TestLocalTransportImport(t *testing.T) {
	dir := t.TempDir()
	entries := filepath.Join(dir, "entries.jsonl")
	data := `{"guid":"00000000-0000-4000-8000-000000000001","lexicalUnit":{"seh":"nyumba"},"senses":[{"guid":"00000000-0000-4000-8000-000000000011","gloss":{"en":"house"}}]}
{"guid":"00000000-0000-4000-8000-000000000002","lexicalUnit":{"seh":"mbudzi"},"senses":[{"guid":"00000000-0000-4000-8000-000000000012","gloss":{"en":"goat"}}]}
`
	require.NoError(t, os.WriteFile(entries, []byte(data), 0o600))

	cfg := withDefaults(cliConfig{Transport: "local", DBPath: filepath.Join(dir, "lex.db")})
	ctx := context.Background()

	var out application.ImportOutcome
	require.NoError(t, doImport(ctx, cfg, importInput{EntriesPath: entries, Style: domain.KeepNew}, &out))
	assert.Equal(t, application.RunFinished, out.Run.Status)
	assert.Equal(t, 2, out.Result.Created)

	var list []domain.EntrySummary
	require.NoError(t, doEntriesList(ctx, cfg, "nyu", 0, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "nyumba", list[0].Headword)

	var entry domain.Entry
	require.NoError(t, doEntryGet(ctx, cfg, list[0].GUID.String(), &entry))
	require.Len(t, entry.Senses, 1)
	assert.Equal(t, "house", entry.Senses[0].Gloss.Get("en"))

	var runs []domain.ImportRun
	require.NoError(t, doRunsList(ctx, cfg, 0, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Created)
}
