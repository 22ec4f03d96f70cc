package zone

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/combinedd/internal/echo"
	"github.com/dokzlo13/combinedd/internal/light"
)

type call struct {
	id       string
	on       bool
	level    uint8
	expected bool // expectation existed when the command was sent
}

type fakeCommander struct {
	guard *echo.Guard
	fail  map[string]error
	calls []call
}

func (f *fakeCommander) TurnOn(_ context.Context, id string, level uint8) error {
	_, ok := f.guard.Expected(id)
	f.calls = append(f.calls, call{id: id, on: true, level: level, expected: ok})
	return f.fail[id]
}

func (f *fakeCommander) TurnOff(_ context.Context, id string) error {
	_, ok := f.guard.Expected(id)
	f.calls = append(f.calls, call{id: id, expected: ok})
	return f.fail[id]
}

type fakeJournal struct {
	sent   []string
	failed []string
}

func (j *fakeJournal) Sent(session, id string, level uint8) {
	j.sent = append(j.sent, fmt.Sprintf("%s/%s/%d", session, id, level))
}

func (j *fakeJournal) Failed(session, id string, err error) {
	j.failed = append(j.failed, fmt.Sprintf("%s/%s", session, id))
}

func TestApply_TurnOn(t *testing.T) {
	g := echo.NewGuard()
	cmd := &fakeCommander{guard: g}
	c := NewController(cmd, g, nil)

	res := c.Apply(context.Background(), "s1", []string{"a", "b"}, 60.4)

	assert.Equal(t, Result{Sent: 2}, res)
	require.Len(t, cmd.calls, 2)
	for _, cl := range cmd.calls {
		assert.True(t, cl.on)
		assert.Equal(t, uint8(154), cl.level)
		assert.True(t, cl.expected, "expectation recorded before command for %s", cl.id)
	}

	b, ok := g.Expected("a")
	require.True(t, ok)
	assert.Equal(t, uint8(154), b)
}

func TestApply_TurnOff(t *testing.T) {
	g := echo.NewGuard()
	cmd := &fakeCommander{guard: g}
	c := NewController(cmd, g, nil)

	c.Apply(context.Background(), "s1", []string{"a"}, 0)

	require.Len(t, cmd.calls, 1)
	assert.False(t, cmd.calls[0].on)
	assert.True(t, cmd.calls[0].expected)
	assert.Equal(t, echo.Self, g.Classify("a", light.State{}))
}

func TestApply_FailureDoesNotBlockZone(t *testing.T) {
	g := echo.NewGuard()
	cmd := &fakeCommander{guard: g, fail: map[string]error{
		"b": fmt.Errorf("bridge said: %w", light.ErrNotFound),
	}}
	j := &fakeJournal{}
	c := NewController(cmd, g, j)

	res := c.Apply(context.Background(), "s1", []string{"a", "b", "c"}, 50)

	assert.Equal(t, Result{Sent: 2, Failed: 1}, res)
	require.Len(t, cmd.calls, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{cmd.calls[0].id, cmd.calls[1].id, cmd.calls[2].id})

	_, ok := g.Expected("b")
	assert.False(t, ok, "failed light's expectation must be cleared")
	_, ok = g.Expected("a")
	assert.True(t, ok)
	_, ok = g.Expected("c")
	assert.True(t, ok)

	assert.Equal(t, []string{"s1/a/128", "s1/c/128"}, j.sent)
	assert.Equal(t, []string{"s1/b"}, j.failed)
}

func TestApply_EmptyZone(t *testing.T) {
	g := echo.NewGuard()
	cmd := &fakeCommander{guard: g}
	c := NewController(cmd, g, nil)

	assert.Equal(t, Result{}, c.Apply(context.Background(), "s1", nil, 80))
	assert.Empty(t, cmd.calls)
}
