package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatched(t *testing.T) {
	assert.True(t, watched("/in/contract.PDF", defaultWatchExts))
	assert.True(t, watched("notes.txt", defaultWatchExts))
	assert.False(t, watched("scan.png", defaultWatchExts))
	assert.False(t, watched("contract.analysis.json", map[string]struct{}{"json": {}}))
	assert.Equal(t, "/in/contract.analysis.json", analysisPath("/in/contract.pdf"))
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p, ok := <-ch:
		require.True(t, ok, "watcher closed")
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no file reported")
		return ""
	}
}

func TestStartWatcher(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "old.txt")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := StartWatcher(ctx, WatchConfig{Root: dir, InitialScan: true, Debounce: 20 * time.Millisecond}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, existing, next(t, ch))

	created := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(created, []byte("%PDF-1.4"), 0o644))
	assert.Equal(t, created, next(t, ch))

	cancel()
	for range ch {
	}
}

func TestStartWatcher_NoRoot(t *testing.T) {
	_, err := StartWatcher(context.Background(), WatchConfig{}, slog.Default())
	assert.Error(t, err)
}

func TestFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("text"), 0o644))
	assert.False(t, fresh(src))

	require.NoError(t, os.WriteFile(analysisPath(src), []byte("{}"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(src, past, past))
	assert.True(t, fresh(src))
	assert.True(t, fresh(filepath.Join(dir, "missing.txt")))
}

func TestPlanCommand(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	src := filepath.Join(t.TempDir(), "contract.txt")
	require.NoError(t, os.WriteFile(src, []byte(lawText), 0o644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"plan", src, "--fields", "currency,governing_law"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Contract Extraction Plan (estimated costs)")
	assert.Contains(t, out.String(), "PromptCall #0 (model=gemini-2.5-flash")
}

func TestExtractCommand_RequiresAPIKey(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	src := filepath.Join(t.TempDir(), "contract.txt")
	require.NoError(t, os.WriteFile(src, []byte(lawText), 0o644))

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extract", src})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
