package errors

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type codedError struct{ code string }

func (e *codedError) Error() string { return e.code }

func TestAsType(t *testing.T) {
	base := &codedError{code: "E1"}
	wrapped := Wrap(base, "failed to do work")

	got, ok := AsType[*codedError](wrapped)
	assert.True(t, ok)
	assert.Equal(t, "E1", got.code)

	_, ok = AsType[*codedError](New("plain"))
	assert.False(t, ok)
}

func TestIsAny(t *testing.T) {
	first := New("first")
	second := New("second")

	assert.True(t, IsAny(Wrap(second, "ctx"), first, second))
	assert.False(t, IsAny(New("other"), first, second))
	assert.False(t, IsAny(nil, first))
}

func TestWrapfKeepsTarget(t *testing.T) {
	root := New("root")
	err := Wrapf(root, "step %d", 2)

	assert.True(t, Is(err, root))
	assert.Equal(t, "step 2: root", err.Error())
}

type deadlineError struct{ timeout bool }

func (e deadlineError) Error() string   { return "i/o" }
func (e deadlineError) Timeout() bool   { return e.timeout }
func (e deadlineError) Temporary() bool { return false }

var _ net.Error = deadlineError{}

func TestIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "context deadline", err: Wrap(ctx.Err(), "find user"), want: true},
		{name: "network read deadline", err: WithStack(deadlineError{timeout: true}), want: true},
		{name: "network error without timeout", err: deadlineError{}, want: false},
		{name: "cancellation", err: context.Canceled, want: false},
		{name: "nil", err: nil, want: false},
		{name: "plain", err: New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTimeout(tt.err))
		})
	}
}
