package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFCache_ExpiresAfterTTL(t *testing.T) {
	n := 0
	c := NewCSRFCache(func(context.Context) (string, error) {
		n++
		return "tok", nil
	}, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Token(context.Background())
	require.NoError(t, err)
	_, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	now = now.Add(2 * time.Minute)
	_, err = c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCSRFCache_InvalidateAndFailure(t *testing.T) {
	fail := true
	c := NewCSRFCache(func(context.Context) (string, error) {
		if fail {
			return "", errors.New("boom")
		}
		return "tok", nil
	}, 0)

	_, err := c.Token(context.Background())
	assert.Error(t, err)

	fail = false
	tok, err := c.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	fail = true
	tok, err = c.Token(context.Background())
	require.NoError(t, err, "cached token is reused without refetching")
	assert.Equal(t, "tok", tok)

	c.Invalidate()
	_, err = c.Token(context.Background())
	assert.Error(t, err)
}
