package utils

import (
	"reflect"
	"testing"
)

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a, b ,c", []string{"a", "b", "c"}},
		{" , ,", []string{}},
		{"", []string{}},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		if got := SplitAndTrim(tt.in, ","); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitAndTrim(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestJSONPointerToPath(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"#":                 "",
		"/0/task":           "[0].task",
		"#/tasks/2/depends": "tasks[2].depends",
		"/a~1b/c~0d":        "a/b.c~d",
	}
	for in, want := range tests {
		if got := JSONPointerToPath(in); got != want {
			t.Errorf("JSONPointerToPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"my project", "my_project"},
		{"taskcal", "taskcal"},
		{"a//b??c", "a_b_c"},
		{"__x__", "x"},
		{"", "project"},
		{"!!!", "project"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in, "project"); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
