package tools

import "fmt"

// DuplicateToolError is returned by Register when the name is taken.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError is returned when a name is not in the registry.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ArgumentParseError means the raw argument payload was not a JSON object.
type ArgumentParseError struct {
	Tool string
	Err  error
}

func (e *ArgumentParseError) Error() string {
	return fmt.Sprintf("tool %s: malformed arguments: %v", e.Tool, e.Err)
}

func (e *ArgumentParseError) Unwrap() error { return e.Err }

// MissingArgumentError means a required parameter was absent or null.
type MissingArgumentError struct {
	Tool  string
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("tool %s: missing required argument %q", e.Tool, e.Param)
}

// InvalidArgumentError means an argument had the wrong type or a value
// outside the declared allowed values.
type InvalidArgumentError struct {
	Tool   string
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("tool %s: invalid argument %q: %s", e.Tool, e.Param, e.Reason)
}

// ToolExecutionError wraps a failure raised by the tool itself. MaxLen caps
// the length of the wrapped error's text in Error; zero means no cap. Err is
// kept intact for errors.Is and errors.As.
type ToolExecutionError struct {
	Tool   string
	Err    error
	MaxLen int
}

func (e *ToolExecutionError) Error() string {
	msg := e.Err.Error()
	if e.MaxLen > 0 {
		msg = truncate(msg, e.MaxLen)
	}
	return fmt.Sprintf("tool %s failed: %s", e.Tool, msg)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }
