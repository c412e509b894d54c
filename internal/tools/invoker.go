package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/opsdesk/fncall/internal/conversation"
)

const defaultMaxErrorLen = 512

// Invoker validates arguments and runs tools. Every failure, including a
// panicking tool, comes back as an error Result rather than a Go error.
type Invoker struct {
	registry    *Registry
	timeout     time.Duration
	maxErrorLen int
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithTimeout bounds each tool execution. Zero disables the bound.
func WithTimeout(d time.Duration) InvokerOption {
	return func(inv *Invoker) { inv.timeout = d }
}

// WithMaxErrorLen caps the error description fed back to the model.
func WithMaxErrorLen(n int) InvokerOption {
	return func(inv *Invoker) {
		if n > 0 {
			inv.maxErrorLen = n
		}
	}
}

// NewInvoker runs tools from registry. Without options calls are unbounded
// in time and tool errors are capped at 512 bytes.
func NewInvoker(registry *Registry, opts ...InvokerOption) *Invoker {
	inv := &Invoker{registry: registry, maxErrorLen: defaultMaxErrorLen}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Specs exposes the registered specs for the model client.
func (inv *Invoker) Specs() []Spec {
	return inv.registry.Specs()
}

// Freeze freezes the underlying registry.
func (inv *Invoker) Freeze() { inv.registry.Freeze() }

// Invoke resolves, validates and executes a single tool call.
func (inv *Invoker) Invoke(ctx context.Context, call conversation.ToolCallRequest) Result {
	res := Result{CallID: call.ID, ToolName: call.Name}

	tool, err := inv.registry.Resolve(call.Name)
	if err != nil {
		res.Err = err
		return res
	}

	args, err := ParseArguments(call.RawArguments)
	if err != nil {
		res.Err = &ArgumentParseError{Tool: call.Name, Err: err}
		return res
	}

	if err := validateArguments(tool.Spec, args); err != nil {
		res.Err = err
		return res
	}

	payload, err := inv.execute(ctx, tool, args)
	if err != nil {
		res.Err = &ToolExecutionError{Tool: call.Name, Err: err, MaxLen: inv.maxErrorLen}
		return res
	}
	res.Payload = payload
	return res
}

func (inv *Invoker) execute(ctx context.Context, tool Tool, args Arguments) (payload string, err error) {
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			payload = ""
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return tool.Execute(ctx, args)
}

// ParseArguments decodes a raw argument payload. An empty payload is an empty
// object; anything other than a JSON object is an error.
func ParseArguments(raw string) (Arguments, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Arguments{}, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", jsonKind(v))
	}
	return Arguments(obj), nil
}

func validateArguments(spec Spec, args Arguments) error {
	for _, p := range spec.Params {
		v, ok := args[p.Name]
		if !ok || v == nil {
			if p.Required {
				return &MissingArgumentError{Tool: spec.Name, Param: p.Name}
			}
			continue
		}
		if !matchesType(v, p.Type) {
			return &InvalidArgumentError{
				Tool:   spec.Name,
				Param:  p.Name,
				Reason: fmt.Sprintf("expected %s, got %s", p.Type, jsonKind(v)),
			}
		}
		if len(p.Enum) > 0 {
			s := fmt.Sprint(v)
			if !slices.Contains(p.Enum, s) {
				return &InvalidArgumentError{
					Tool:   spec.Name,
					Param:  p.Name,
					Reason: fmt.Sprintf("%q is not one of %s", s, strings.Join(p.Enum, ", ")),
				}
			}
		}
	}
	return nil
}

func matchesType(v interface{}, t ParamType) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeInteger:
		f, ok := v.(float64)
		return ok && math.Trunc(f) == f
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeObject:
		_, ok := v.(map[string]interface{})
		return ok
	case TypeArray:
		_, ok := v.([]interface{})
		return ok
	}
	return false
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	}
	return fmt.Sprintf("%T", v)
}

// truncate shortens s to at most n bytes without splitting a rune. The
// ellipsis is only added when it fits.
func truncate(s string, n int) string {
	if n < 0 {
		n = 0
	}
	if len(s) <= n {
		return s
	}
	const ellipsis = "..."
	suffix := ellipsis
	cut := n - len(ellipsis)
	if cut <= 0 {
		suffix = ""
		cut = n
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
