package filelock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_RelockingSameHandleIsRejected(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "store.lock"))

	require.NoError(t, l.TryLock())
	assert.ErrorIs(t, l.TryLock(), ErrLocked)
	require.NoError(t, l.Unlock())
}

func TestLock_UnlockWithoutLockIsNoop(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "store.lock"))

	assert.NoError(t, l.Unlock())
}
