package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilLockerIsNotConfigured(t *testing.T) {
	l := NewLocker(nil)
	assert.Nil(t, l)

	_, ok, err := l.TryLock(context.Background(), "k", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, l.Release(context.Background(), "k", "t"))
}

func TestJobCompletionKey(t *testing.T) {
	assert.Equal(t, "detailflow:job:complete:123", JobCompletionKey("123"))
}
