package mcp

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/mimirmcp/mimir-host/internal/protocol"
)

// Entry is one registered tool. Invocations of the same entry are
// serialized because binding writes into the shared tool instance; a tool
// may end that section early with Call.Release.
type Entry struct {
	tool       Tool
	params     []*Param
	descriptor protocol.ToolDescriptor

	mu sync.Mutex
}

// Tool returns the registered instance.
func (e *Entry) Tool() Tool { return e.tool }

// Descriptor returns the advertised schema.
func (e *Entry) Descriptor() protocol.ToolDescriptor { return e.descriptor }

// Invoke binds call.Args and runs the tool. The returned error is non-nil
// only when the tool panicked.
func (e *Entry) Invoke(ctx context.Context, call *Call) (result protocol.CallResult, rpcErr *protocol.ResponseError, err error) {
	e.mu.Lock()
	var once sync.Once
	unlock := func() { once.Do(e.mu.Unlock) }
	defer unlock()
	call.release = unlock

	defer func() {
		if r := recover(); r != nil {
			result, rpcErr = protocol.CallResult{}, nil
			err = fmt.Errorf("%v", r)
		}
	}()

	if bindErr := Bind(e.params, call.Args); bindErr != nil {
		return protocol.CallResult{}, protocol.NewError(protocol.CodeInvalidParams, bindErr.Error()), nil
	}

	content, fault := e.tool.Execute(ctx, call)
	if fault != nil {
		return protocol.CallResult{}, fault, nil
	}
	if len(content) == 0 {
		return protocol.CallResult{}, protocol.NewError(protocol.CodeInternalError, "Tool returned no content."), nil
	}
	return protocol.CallResult{Content: content}, nil, nil
}

// Toolbox stores and dispatches tools by name.
type Toolbox struct {
	mu      sync.RWMutex
	entries []*Entry
	byName  map[string]*Entry
}

// NewToolbox constructs a toolbox with the provided tools.
func NewToolbox(tools ...Tool) *Toolbox {
	tb := &Toolbox{byName: make(map[string]*Entry, len(tools))}
	for _, t := range tools {
		tb.Register(t)
	}
	return tb
}

// Register adds t unless it is nil or its name is taken. The first
// registration of a name wins.
func (tb *Toolbox) Register(t Tool) bool {
	if t == nil || isNilTool(t) {
		return false
	}
	name := t.Name()

	tb.mu.RLock()
	_, taken := tb.byName[name]
	tb.mu.RUnlock()
	if taken {
		return false
	}

	params := t.Params()
	e := &Entry{tool: t, params: params, descriptor: usage(t, params)}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if _, taken := tb.byName[name]; taken {
		return false
	}
	tb.entries = append(tb.entries, e)
	tb.byName[name] = e
	return true
}

// Lookup finds a tool by exact name.
func (tb *Toolbox) Lookup(name string) (*Entry, bool) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	e, ok := tb.byName[name]
	return e, ok
}

// Describe returns all tool descriptors in registration order.
func (tb *Toolbox) Describe() []protocol.ToolDescriptor {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	list := make([]protocol.ToolDescriptor, 0, len(tb.entries))
	for _, e := range tb.entries {
		list = append(list, e.descriptor)
	}
	return list
}

// Names returns registered tool names in registration order.
func (tb *Toolbox) Names() []string {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	names := make([]string, 0, len(tb.entries))
	for _, e := range tb.entries {
		names = append(names, e.descriptor.Name)
	}
	return names
}

// Len reports the number of registered tools.
func (tb *Toolbox) Len() int {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	return len(tb.entries)
}

// Call invokes a named tool.
func (tb *Toolbox) Call(ctx context.Context, name string, call *Call) (protocol.CallResult, *protocol.ResponseError, error) {
	e, ok := tb.Lookup(name)
	if !ok {
		return protocol.CallResult{}, protocol.NewError(protocol.CodeMethodNotFound, "Tool not found"), nil
	}
	return e.Invoke(ctx, call)
}

func isNilTool(t Tool) bool {
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
