package ci

import (
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renderlab/rendergate/internal/config"
	"github.com/renderlab/rendergate/internal/preflight"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("info"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARN"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("bogus"))
}

func TestNewWatcher_DefaultDebounce(t *testing.T) {
	w := NewWatcher(nil, nil, 0, nil, LogLevelInfo)
	assert.Equal(t, 500*time.Millisecond, w.debounce)

	w = NewWatcher(nil, nil, 50*time.Millisecond, nil, LogLevelInfo)
	assert.Equal(t, 50*time.Millisecond, w.debounce)
}

// lockedBuffer makes report output safe to poll while the watcher
// goroutine is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Contains(s string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(b.buf.String(), s)
}

func TestWatcher_RevalidatesOnChange(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte(planBody("trp-0001", 8)), 0644))

	var out lockedBuffer
	runner := NewRunner(config.Default(), preflight.Options{}, &out)
	logger := log.New(io.Discard, "", 0)
	w := NewWatcher(runner, []string{dir}, 10*time.Millisecond, logger, LogLevelError)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Let the initial scan complete, then push the plan over the free cap.
	require.Eventually(t, func() bool {
		return out.Contains("validated 1 plan(s)")
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(planPath, []byte(planBody("trp-0001", 99)), 0644))
	require.Eventually(t, func() bool {
		return out.Contains("POL001")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcher_MissingDirFails(t *testing.T) {
	runner := NewRunner(config.Default(), preflight.Options{}, io.Discard)
	w := NewWatcher(runner, []string{filepath.Join(t.TempDir(), "absent")}, 0, nil, LogLevelError)
	assert.Error(t, w.Run(context.Background()))
}
