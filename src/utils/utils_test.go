package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "fallback", OrDefault("", "fallback"))
	assert.Equal(t, "set", OrDefault("set", "fallback"))
	assert.Equal(t, 5432, OrDefault(0, 5432))
}

func TestMust1(t *testing.T) {
	assert.Equal(t, 3, Must1(3, nil))
	assert.Panics(t, func() {
		Must1(0, errors.New("bad"))
	})
}

func TestRecoverPanicAsError(t *testing.T) {
	t.Run("error value", func(t *testing.T) {
		sentinel := errors.New("boom")
		f := func() (err error) {
			defer RecoverPanicAsError(&err)
			panic(sentinel)
		}
		err := f()
		assert.ErrorIs(t, err, sentinel)
	})
	t.Run("other value", func(t *testing.T) {
		f := func() (err error) {
			defer RecoverPanicAsError(&err)
			panic("oh no")
		}
		err := f()
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "oh no")
		}
	})
	t.Run("no panic", func(t *testing.T) {
		f := func() (err error) {
			defer RecoverPanicAsError(&err)
			return nil
		}
		assert.NoError(t, f())
	})
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, SleepContext(ctx, time.Hour), ErrSleepInterrupted)
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))
}
