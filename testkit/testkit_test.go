package testkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snow-ghost/codeassist/core"
)

func TestProviderDefaults(t *testing.T) {
	p := NewProvider("Echo", 3)
	assert.Equal(t, 3, p.Score("anything"))

	out, err := p.Invoke(context.Background(), core.Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: hi", out.Response)
	assert.Equal(t, 1, p.Calls())
}

func TestProviderDelayHonorsContext(t *testing.T) {
	p := NewProvider("Slow", 1)
	p.Delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Invoke(ctx, core.Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTermProvider(t *testing.T) {
	var p core.Provider = NewTermProvider("Terms", "fix", "bug")
	tt, ok := p.(core.TriggerTermer)
	require.True(t, ok)
	assert.Equal(t, []string{"fix", "bug"}, tt.TriggerTerms())
	assert.Zero(t, p.Score("fix"))
}

func TestGenerator(t *testing.T) {
	g := NewGenerator("ok")
	out, err := g.Complete(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	boom := errors.New("boom")
	f := FailingGenerator(boom)
	_, err = f.Complete(context.Background(), "p2")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "p2", f.LastPrompt())
	assert.Equal(t, []string{"p1"}, g.Prompts())
}
