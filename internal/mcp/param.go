package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ParamType is the logical type of a tool parameter as advertised in the
// input schema.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
)

// Numeric lists the Go types a number parameter can bind to.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

var errConvert = errors.New("conversion failed")

// Param declares one tool parameter and the field it binds into.
// Build params with String, Number, Bool and their Nullable variants.
type Param struct {
	Name        string
	Description string
	Type        ParamType
	Nullable    bool

	required bool
	set      func(v any) error
	reset    func()
}

// Required marks the parameter as mandatory.
func (p *Param) Required() *Param {
	p.required = true
	return p
}

// IsRequired reports whether the parameter must be supplied.
func (p *Param) IsRequired() bool {
	return p.required
}

// String binds a string parameter into dst.
func String(name, description string, dst *string) *Param {
	return &Param{
		Name:        name,
		Description: description,
		Type:        TypeString,
		set: func(v any) error {
			if v == nil {
				return errConvert
			}
			*dst = render(v)
			return nil
		},
		reset: func() { *dst = "" },
	}
}

// NullableString binds an optional string parameter; dst is nil when the
// argument is absent or null.
func NullableString(name, description string, dst **string) *Param {
	return &Param{
		Name:        name,
		Description: description,
		Type:        TypeString,
		Nullable:    true,
		set: func(v any) error {
			if v == nil {
				*dst = nil
				return nil
			}
			s := render(v)
			*dst = &s
			return nil
		},
		reset: func() { *dst = nil },
	}
}

// Number binds a numeric parameter into dst. Integer targets round half to
// even and reject values outside their range.
func Number[N Numeric](name, description string, dst *N) *Param {
	return &Param{
		Name:        name,
		Description: description,
		Type:        TypeNumber,
		set: func(v any) error {
			if v == nil {
				return errConvert
			}
			n, err := toNumber[N](v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		},
		reset: func() { *dst = 0 },
	}
}

// NullableNumber binds an optional numeric parameter.
func NullableNumber[N Numeric](name, description string, dst **N) *Param {
	return &Param{
		Name:        name,
		Description: description,
		Type:        TypeNumber,
		Nullable:    true,
		set: func(v any) error {
			if v == nil {
				*dst = nil
				return nil
			}
			n, err := toNumber[N](v)
			if err != nil {
				return err
			}
			*dst = &n
			return nil
		},
		reset: func() { *dst = nil },
	}
}

// Bool binds a boolean parameter into dst.
func Bool(name, description string, dst *bool) *Param {
	return &Param{
		Name:        name,
		Description: description,
		Type:        TypeBoolean,
		set: func(v any) error {
			b, err := toBool(v)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		},
		reset: func() { *dst = false },
	}
}

// NullableBool binds an optional boolean parameter.
func NullableBool(name, description string, dst **bool) *Param {
	return &Param{
		Name:        name,
		Description: description,
		Type:        TypeBoolean,
		Nullable:    true,
		set: func(v any) error {
			if v == nil {
				*dst = nil
				return nil
			}
			b, err := toBool(v)
			if err != nil {
				return err
			}
			*dst = &b
			return nil
		},
		reset: func() { *dst = nil },
	}
}

// render is the default text form of a decoded JSON value.
func render(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, errConvert
		}
		return f, nil
	case bool:
		return 0, errConvert
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(render(v)), 64)
	if err != nil {
		return 0, errConvert
	}
	return f, nil
}

func toNumber[N Numeric](v any) (N, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errConvert
	}

	switch reflect.TypeFor[N]().Kind() {
	case reflect.Float64:
		return N(f), nil
	case reflect.Float32:
		if math.Abs(f) > math.MaxFloat32 {
			return 0, errConvert
		}
		return N(f), nil
	}

	r := math.RoundToEven(f)
	n := N(r)
	if float64(n) != r {
		return 0, errConvert
	}
	return n, nil
}

func toBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if v == nil {
		return false, errConvert
	}
	s := strings.TrimSpace(render(v))
	switch {
	case strings.EqualFold(s, "true"):
		return true, nil
	case strings.EqualFold(s, "false"):
		return false, nil
	}
	return false, errConvert
}
