package tools_test

import (
	"context"
	"errors"
	"testing"

	"github.com/opsdesk/fncall/internal/tools"
)

func noop(context.Context, tools.Arguments) (string, error) { return "{}", nil }

func TestRegisterAndResolve(t *testing.T) {
	reg := tools.NewRegistry()
	if err := reg.Register(tools.WeatherSpec, noop); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tool, err := reg.Resolve("get_current_weather")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tool.Spec.Name != "get_current_weather" {
		t.Errorf("resolved %q", tool.Spec.Name)
	}

	_, err = reg.Resolve("get_stock_price")
	var unknown *tools.UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
	if unknown.Name != "get_stock_price" {
		t.Errorf("UnknownToolError.Name = %q", unknown.Name)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(tools.StatusSpec, noop)

	err := reg.Register(tools.StatusSpec, noop)
	var dup *tools.DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}
}

func TestRegisterRejectsBadSpecs(t *testing.T) {
	tests := []struct {
		name string
		spec tools.Spec
		fn   tools.Func
	}{
		{"empty name", tools.Spec{}, noop},
		{"nil callable", tools.Spec{Name: "x"}, nil},
		{"bad type", tools.Spec{Name: "x", Params: []tools.Param{{Name: "a", Type: "date"}}}, noop},
		{"duplicate param", tools.Spec{Name: "x", Params: []tools.Param{
			{Name: "a", Type: tools.TypeString},
			{Name: "a", Type: tools.TypeString},
		}}, noop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tools.NewRegistry().Register(tt.spec, tt.fn); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestFreeze(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(tools.WeatherSpec, noop)
	reg.Freeze()
	reg.Freeze()

	err := reg.Register(tools.StatusSpec, noop)
	if !errors.Is(err, tools.ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
	if _, err := reg.Resolve("get_current_weather"); err != nil {
		t.Errorf("Resolve after freeze: %v", err)
	}
}

func TestSpecsInRegistrationOrder(t *testing.T) {
	reg := tools.NewRegistry()
	reg.MustRegister(tools.StatusSpec, noop)
	reg.MustRegister(tools.WeatherSpec, noop)
	reg.MustRegister(tools.LogSearchSpec, noop)

	specs := reg.Specs()
	want := []string{"get_current_status", "get_current_weather", "search_logs"}
	if len(specs) != len(want) {
		t.Fatalf("got %d specs", len(specs))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Errorf("specs[%d] = %q, want %q", i, specs[i].Name, name)
		}
	}
}

func TestJSONSchema(t *testing.T) {
	schema := tools.WeatherSpec.JSONSchema()
	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "location" {
		t.Errorf("required = %v", required)
	}
	props, _ := schema["properties"].(map[string]interface{})
	unit, _ := props["unit"].(map[string]interface{})
	enum, _ := unit["enum"].([]string)
	if len(enum) != 2 {
		t.Errorf("unit enum = %v", unit["enum"])
	}

	empty := tools.StatusSpec.JSONSchema()
	if req, _ := empty["required"].([]string); req == nil || len(req) != 0 {
		t.Errorf("parameterless tool should render an empty required list, got %v", empty["required"])
	}
}
