package conv

import (
	"reflect"
	"testing"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{3.14, 3.14, true},
		{float32(1.5), 1.5, true},
		{42, 42, true},
		{int64(7), 7, true},
		{int32(7), 7, true},
		{true, 1.0, true},
		{false, 0.0, true},
		{"nope", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToFloat64(%v) = (%f, %v), want (%f, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
		ok   bool
	}{
		{42, 42, true},
		{int64(7), 7, true},
		{3.9, 3, true},
		{"nope", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToInt(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConfigGet(t *testing.T) {
	cfg := map[string]any{"name": "homepage", "limit": 5}

	if got := ConfigGet(cfg, "name", "default"); got != "homepage" {
		t.Errorf("ConfigGet(name) = %s", got)
	}
	if got := ConfigGet(cfg, "missing", "default"); got != "default" {
		t.Errorf("ConfigGet(missing) = %s", got)
	}
	if got := ConfigGet(cfg, "limit", "default"); got != "default" {
		t.Errorf("type mismatch must return default, got %s", got)
	}
	if got := ConfigGet[string](nil, "name", "default"); got != "default" {
		t.Errorf("nil config must return default, got %s", got)
	}
}

func TestConfigGetNumeric(t *testing.T) {
	// yaml 解析出 int，json 解析出 float64，两者都要兼容
	cfg := map[string]any{"from_yaml": 5, "from_json": 5.0}

	if got := ConfigGetInt64(cfg, "from_yaml", 0); got != 5 {
		t.Errorf("ConfigGetInt64(from_yaml) = %d", got)
	}
	if got := ConfigGetInt64(cfg, "from_json", 0); got != 5 {
		t.Errorf("ConfigGetInt64(from_json) = %d", got)
	}
	if got := ConfigGetFloat64(cfg, "from_yaml", 0); got != 5.0 {
		t.Errorf("ConfigGetFloat64(from_yaml) = %f", got)
	}
	if got := ConfigGetInt64(cfg, "missing", 9); got != 9 {
		t.Errorf("ConfigGetInt64(missing) = %d", got)
	}
}

func TestSliceAnyToString(t *testing.T) {
	got := SliceAnyToString([]any{"a", 1, "b", nil})
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("SliceAnyToString() = %v", got)
	}
	if got := SliceAnyToString("not a slice"); got != nil {
		t.Errorf("non-slice input = %v, want nil", got)
	}
}
