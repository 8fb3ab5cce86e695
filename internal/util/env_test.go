package util

import (
	"reflect"
	"testing"
)

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  int
	}{
		{"Unset", "", false, 4},
		{"Set", "12", true, 12},
		{"Padded", " 7 ", true, 7},
		{"Malformed", "many", true, 4},
		{"Float", "2.5", true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("BIBLIOGRAPH_TEST_INT", tt.value)
			}
			if got := GetEnvInt("BIBLIOGRAPH_TEST_INT", 4); got != tt.want {
				t.Fatalf("GetEnvInt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"FALSE", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("BIBLIOGRAPH_TEST_BOOL", tt.value)
			if got := GetEnvBool("BIBLIOGRAPH_TEST_BOOL", true); got != tt.want {
				t.Fatalf("GetEnvBool(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	if got := GetEnvList("BIBLIOGRAPH_TEST_LIST", []string{"*"}); !reflect.DeepEqual(got, []string{"*"}) {
		t.Fatalf("unset list = %q", got)
	}
	t.Setenv("BIBLIOGRAPH_TEST_LIST", " a, ,b ,")
	if got := GetEnvList("BIBLIOGRAPH_TEST_LIST", nil); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("list = %q", got)
	}
}

func TestGetEnvString(t *testing.T) {
	if got := GetEnvString("BIBLIOGRAPH_TEST_STR", "dflt"); got != "dflt" {
		t.Fatalf("unset = %q", got)
	}
	t.Setenv("BIBLIOGRAPH_TEST_STR", "")
	if got := GetEnvString("BIBLIOGRAPH_TEST_STR", "dflt"); got != "" {
		t.Fatalf("empty but set = %q", got)
	}
}
