package mcp

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimirmcp/mimir-host/internal/protocol"
)

type echoTool struct {
	name  string
	Text  string
	Times int

	runs atomic.Int32
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "Echoes text." }

func (t *echoTool) Params() []*Param {
	return []*Param{
		String("text", "text to echo", &t.Text).Required(),
		Number("times", "repeat count", &t.Times),
	}
}

func (t *echoTool) Execute(context.Context, *Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	t.runs.Add(1)
	if t.Text == "fault" {
		return Fault(protocol.CodePrecondition, "no active context")
	}
	if t.Text == "empty" {
		return nil, nil
	}
	if t.Text == "panic" {
		panic("tool exploded")
	}
	out := make([]protocol.ContentItem, 0, max(t.Times, 1))
	for range max(t.Times, 1) {
		out = append(out, protocol.Text(t.Text))
	}
	return out, nil
}

// overlapTool records how many of its executions overlap.
type overlapTool struct {
	name         string
	Delay        float64
	active, peak atomic.Int32
}

func (t *overlapTool) Name() string        { return t.name }
func (t *overlapTool) Description() string { return "" }
func (t *overlapTool) Params() []*Param {
	return []*Param{Number("delay_ms", "", &t.Delay)}
}

func (t *overlapTool) Execute(context.Context, *Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	n := t.active.Add(1)
	for {
		p := t.peak.Load()
		if n <= p || t.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Duration(t.Delay) * time.Millisecond)
	t.active.Add(-1)
	return Reply("ok")
}

func call(args map[string]any) *Call {
	return &Call{ID: "test", Args: args}
}

func TestRegisterFirstWins(t *testing.T) {
	first := &echoTool{name: "echo"}
	tb := NewToolbox(first, &echoTool{name: "other"})

	assert.False(t, tb.Register(&echoTool{name: "echo"}))
	assert.False(t, tb.Register(nil))
	var nilTool *echoTool
	assert.False(t, tb.Register(nilTool))

	assert.Equal(t, []string{"echo", "other"}, tb.Names())
	assert.Equal(t, 2, tb.Len())

	e, ok := tb.Lookup("echo")
	require.True(t, ok)
	assert.Same(t, first, e.Tool())

	_, ok = tb.Lookup("ECHO")
	assert.False(t, ok)
}

func TestUsageDescriptor(t *testing.T) {
	d := Usage(&echoTool{name: "echo"})
	assert.Equal(t, "echo", d.Name)
	assert.Equal(t, "Echoes text.", d.Description)
	require.NotNil(t, d.InputSchema)
	assert.Equal(t, "object", d.InputSchema.Type)
	assert.Equal(t, []string{"text"}, d.InputSchema.Required)
	assert.Equal(t, protocol.JSONSchema{Type: "number", Description: "repeat count"}, d.InputSchema.Properties["times"])
}

func TestCallOutcomes(t *testing.T) {
	tool := &echoTool{name: "echo"}
	tb := NewToolbox(tool)
	ctx := context.Background()

	res, rpcErr, err := tb.Call(ctx, "echo", call(map[string]any{"text": "hi", "times": 2}))
	require.NoError(t, err)
	require.Nil(t, rpcErr)
	assert.Equal(t, []protocol.ContentItem{protocol.Text("hi"), protocol.Text("hi")}, res.Content)

	_, rpcErr, err = tb.Call(ctx, "missing", call(nil))
	require.NoError(t, err)
	assert.Equal(t, protocol.NewError(protocol.CodeMethodNotFound, "Tool not found"), rpcErr)

	_, rpcErr, err = tb.Call(ctx, "echo", call(map[string]any{"text": "fault"}))
	require.NoError(t, err)
	assert.Equal(t, protocol.CodePrecondition, rpcErr.Code)
	assert.Equal(t, "no active context", rpcErr.Message)

	_, rpcErr, err = tb.Call(ctx, "echo", call(map[string]any{"text": "empty"}))
	require.NoError(t, err)
	assert.Equal(t, protocol.NewError(protocol.CodeInternalError, "Tool returned no content."), rpcErr)

	_, rpcErr, err = tb.Call(ctx, "echo", call(map[string]any{"text": "panic"}))
	assert.Nil(t, rpcErr)
	require.Error(t, err)
	assert.Equal(t, "tool exploded", err.Error())

	// the entry lock is released after a panic
	_, rpcErr, err = tb.Call(ctx, "echo", call(map[string]any{"text": "again"}))
	require.NoError(t, err)
	assert.Nil(t, rpcErr)
}

func TestBindFailureSkipsExecution(t *testing.T) {
	tool := &echoTool{name: "echo"}
	tb := NewToolbox(tool)

	_, rpcErr, err := tb.Call(context.Background(), "echo", call(map[string]any{"text": "x", "times": "not-a-number"}))
	require.NoError(t, err)
	assert.Equal(t, protocol.CodeInvalidParams, rpcErr.Code)
	assert.Equal(t, "Parameter 'times' could not be converted to number.", rpcErr.Message)
	assert.Zero(t, tool.runs.Load())
}

func TestSameToolCallsAreSerialized(t *testing.T) {
	a := &overlapTool{name: "a"}
	b := &overlapTool{name: "b"}
	tb := NewToolbox(a, b)

	var wg sync.WaitGroup
	for range 6 {
		for _, name := range []string{"a", "b"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, _ = tb.Call(context.Background(), name, call(map[string]any{"delay_ms": 5}))
			}()
		}
	}
	wg.Wait()

	assert.Equal(t, int32(1), a.peak.Load())
	assert.Equal(t, int32(1), b.peak.Load())
}

func TestConcurrentRegistration(t *testing.T) {
	tb := NewToolbox()
	var added atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tb.Register(&echoTool{name: "dup"}) {
				added.Add(1)
			}
			_ = tb.Describe()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), added.Load())
	assert.Equal(t, 1, tb.Len())
}

// gateTool releases its entry early and then blocks until gate closes.
type gateTool struct {
	Tag     string
	gate    chan struct{}
	entered chan string
}

func (t *gateTool) Name() string        { return "gate" }
func (t *gateTool) Description() string { return "" }
func (t *gateTool) Params() []*Param    { return []*Param{String("tag", "", &t.Tag)} }

func (t *gateTool) Execute(_ context.Context, c *Call) ([]protocol.ContentItem, *protocol.ResponseError) {
	tag := t.Tag
	c.Release()
	t.entered <- tag
	<-t.gate
	return Reply(tag)
}

func TestReleaseLetsNextCallStart(t *testing.T) {
	tool := &gateTool{gate: make(chan struct{}), entered: make(chan string, 2)}
	tb := NewToolbox(tool)

	results := make(chan string, 2)
	for _, tag := range []string{"one", "two"} {
		go func() {
			res, _, _ := tb.Call(context.Background(), "gate", call(map[string]any{"tag": tag}))
			results <- res.Content[0].Text
		}()
	}

	seen := map[string]bool{}
	for range 2 {
		select {
		case tag := <-tool.entered:
			seen[tag] = true
		case <-time.After(2 * time.Second):
			t.Fatal("second call blocked behind the first")
		}
	}
	close(tool.gate)

	got := map[string]bool{<-results: true, <-results: true}
	assert.Equal(t, seen, got)
	assert.True(t, got["one"] && got["two"])
}
