// SPDX-License-Identifier: GPL-3.0-or-later

package reuser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"websocat/internal/core"
)

func TestListenerInitializesOnce(t *testing.T) {
	calls := 0
	l := NewListener(func(ctx context.Context) (*core.DatagramSocket, error) {
		calls++
		inner, _ := newMemInner()
		return inner, nil
	}, false, false)

	_, err := l.MaybeInitThenConnect(context.Background())
	require.NoError(t, err)
	_, err = l.MaybeInitThenConnect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestListenerFailsFastWithoutConnectAgain(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	l := NewListener(func(ctx context.Context) (*core.DatagramSocket, error) {
		calls++
		return nil, boom
	}, false, false)

	_, err := l.MaybeInitThenConnect(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = l.MaybeInitThenConnect(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestListenerRetriesWithConnectAgain(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	l := NewListener(func(ctx context.Context) (*core.DatagramSocket, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		inner, _ := newMemInner()
		return inner, nil
	}, false, true)

	_, err := l.MaybeInitThenConnect(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = l.MaybeInitThenConnect(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
