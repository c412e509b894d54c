// Package tools defines the callable functions a model may request, the
// registry that names them, and the invoker that runs them behind a failure
// boundary.
package tools

import (
	"context"
	"fmt"
)

// ParamType is the JSON type a parameter accepts.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// Param declares a single tool argument.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// Spec describes a tool to the model.
type Spec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// JSONSchema renders the parameter list as a JSON Schema object, the shape
// every function-calling API expects.
func (s Spec) JSONSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Params))
	required := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		prop := map[string]interface{}{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func (s Spec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("tool %s: parameter name is empty", s.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("tool %s: parameter %s declared twice", s.Name, p.Name)
		}
		seen[p.Name] = true
		switch p.Type {
		case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeObject, TypeArray:
		default:
			return fmt.Errorf("tool %s: parameter %s has unsupported type %q", s.Name, p.Name, p.Type)
		}
	}
	return nil
}

// Arguments are the decoded, validated arguments handed to a tool.
type Arguments map[string]interface{}

// Func is the callable behind a tool.
type Func func(ctx context.Context, args Arguments) (string, error)

// Tool pairs a spec with its implementation.
type Tool struct {
	Spec    Spec
	Execute Func
}

// Result is the outcome of one tool invocation.
type Result struct {
	CallID   string
	ToolName string
	Payload  string
	Err      error
}

// Failed reports whether the invocation produced an error.
func (r Result) Failed() bool { return r.Err != nil }

// Content is the text fed back to the model for this result.
func (r Result) Content() string {
	if r.Err != nil {
		return "error: " + r.Err.Error()
	}
	return r.Payload
}
