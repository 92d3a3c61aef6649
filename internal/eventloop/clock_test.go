package eventloop

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClock(t *testing.T) {
	tests := []struct {
		kind    ClockKind
		want    any
		wantErr bool
	}{
		{kind: "", want: &WallClock{}},
		{kind: ClockWall, want: &WallClock{}},
		{kind: ClockVirtual, want: &VirtualClock{}},
		{kind: "lunar", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			c, err := NewClock(tt.kind)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown clock")
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, c)
		})
	}
}

func TestVirtualClock_SleepAdvancesInstantly(t *testing.T) {
	c := NewVirtualClock()
	assert.Equal(t, time.Duration(0), c.Now())

	start := time.Now()
	require.NoError(t, c.Sleep(context.Background(), time.Hour))
	require.NoError(t, c.Sleep(context.Background(), -time.Second))

	assert.Equal(t, time.Hour, c.Now())
	assert.Less(t, time.Since(start), time.Second, "virtual sleep must not block")
}

func TestVirtualClock_SleepHonoursCancelledContext(t *testing.T) {
	c := NewVirtualClock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, time.Duration(0), c.Now(), "cancelled sleep must not advance the clock")
}

func TestWallClock_SleepAbortsOnCancel(t *testing.T) {
	c := NewWallClock()
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := c.Sleep(ctx, 10*time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWallClock_SleepWaits(t *testing.T) {
	c := NewWallClock()

	require.NoError(t, c.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, c.Now(), 5*time.Millisecond)
}
