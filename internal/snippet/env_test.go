package snippet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snipcheck/internal/eventloop"
)

type sliceSink []Record

func (s *sliceSink) Write(r Record) { *s = append(*s, r) }

func runEnv(t *testing.T, restricted bool, body Body) ([]Record, error) {
	t.Helper()
	var sink sliceSink
	loop := eventloop.New(eventloop.Options{
		Clock:      eventloop.NewVirtualClock(),
		Deadline:   time.Second,
		Restricted: restricted,
	})
	env := NewEnv(context.Background(), loop, &sink)
	err := loop.Run(context.Background(), func() error { return body(env) })
	return sink, err
}

func TestEnv_SynchronousOrder(t *testing.T) {
	records, err := runEnv(t, true, func(env *Env) error {
		env.Log("um")
		env.Error("dois")
		env.Logf("%d", 3)
		env.Log(5+2, "itens", true)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Channel: Stdout, Text: "um"},
		{Channel: Stderr, Text: "dois"},
		{Channel: Stdout, Text: "3"},
		{Channel: Stdout, Text: "7 itens true"},
	}, records)
}

func TestEnv_Race(t *testing.T) {
	records, err := runEnv(t, false, func(env *Env) error {
		env.Log("A")
		env.SetTimeout(0, func() error {
			env.Log("B")
			return nil
		})
		env.Resolve(nil).Then(func(any) (any, error) {
			env.Log("C")
			return nil, nil
		}, nil)
		env.Log("D")
		return nil
	})

	require.NoError(t, err)
	var texts []string
	for _, r := range records {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{"A", "D", "C", "B"}, texts)
}

func TestEnv_UndeclaredDeferredWork(t *testing.T) {
	records, err := runEnv(t, true, func(env *Env) error {
		env.Log("before")
		env.SetTimeout(time.Millisecond, func() error { return nil })
		env.Log("after")
		return nil
	})

	assert.ErrorIs(t, err, ErrUndeclaredDeferred)
	assert.Equal(t, []Record{{Channel: Stdout, Text: "before"}}, records)
}

func TestEnv_ThrownErrorStopsBody(t *testing.T) {
	_, err := runEnv(t, true, func(env *Env) error {
		return RangeError("Divisão por zero não é permitida.")
	})

	kind, _, msg := Classify(err)
	assert.Equal(t, KindRangeError, kind)
	assert.Equal(t, "Divisão por zero não é permitida.", msg)
}

func TestEnv_Now(t *testing.T) {
	var at time.Duration
	_, err := runEnv(t, false, func(env *Env) error {
		env.SetTimeout(250*time.Millisecond, func() error {
			at = env.Now()
			return nil
		})
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, at)
}

func TestEnv_Context(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	env := NewEnv(ctx, eventloop.New(eventloop.Options{}), &sliceSink{})
	cancel()
	assert.True(t, errors.Is(env.Context().Err(), context.Canceled))
}
