package mcp

import (
	"fmt"
	"sort"
	"strings"
)

// BindError reports the first parameter that could not be bound.
type BindError struct {
	Param   string
	Message string
}

func (e *BindError) Error() string {
	return e.Message
}

// Bind copies args into the fields behind params, visiting params in
// declaration order. Names match case-insensitively with an exact match
// preferred. Absent optional params are reset to their zero value. Binding
// stops at the first failure.
func Bind(params []*Param, args map[string]any) error {
	for _, p := range params {
		v, ok := lookup(args, p.Name)
		if !ok {
			if p.required {
				return &BindError{Param: p.Name, Message: fmt.Sprintf("Parameter '%s' is required.", p.Name)}
			}
			p.reset()
			continue
		}
		if err := p.set(v); err != nil {
			return &BindError{
				Param:   p.Name,
				Message: fmt.Sprintf("Parameter '%s' could not be converted to %s.", p.Name, p.Type),
			}
		}
	}
	return nil
}

func lookup(args map[string]any, name string) (any, bool) {
	if v, ok := args[name]; ok {
		return v, true
	}

	var keys []string
	for k := range args {
		if strings.EqualFold(k, name) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return args[keys[0]], true
}
