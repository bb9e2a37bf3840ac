package maintenance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/internal/store"
)

func newTestStore(t *testing.T) *store.LibSQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "loom-test.db")
	s, err := store.NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestNewJanitorRejectsBadSpec(t *testing.T) {
	s := newTestStore(t)

	_, err := NewJanitor(s, "not a cron spec", nil)
	assert.Error(t, err)

	j, err := NewJanitor(s, "", nil)
	require.NoError(t, err)
	require.NotNil(t, j)
}

func TestJanitorStartStop(t *testing.T) {
	s := newTestStore(t)

	j, err := NewJanitor(s, "* * * * *", nil)
	require.NoError(t, err)

	j.Start(context.Background())
	j.Start(context.Background()) // second Start is a no-op

	done := make(chan struct{})
	go func() {
		j.Stop()
		j.Stop() // second Stop is a no-op
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
