package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies validated arguments into a typed struct using `arg` tags.
// Input is weakly typed so a model sending "3" for an integer still decodes.
func (a Arguments) Decode(out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "arg",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]interface{}(a)); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// String returns the named argument as a string, or "" if absent.
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func marshalPayload(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(b), nil
}
