package tasks

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return v
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"", UnitHours, false},
		{"hours", UnitHours, false},
		{"H", UnitHours, false},
		{"minutes", UnitMinutes, false},
		{" min ", UnitMinutes, false},
		{"days", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseUnit(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUnit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractRecords(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    int
		wantErr bool
	}{
		{"array", `[{"task":"A"},{"task":"B"}]`, 2, false},
		{"tasks object", `{"tasks":[{"task":"A"}]}`, 1, false},
		{"nested plan", `{"plan":{"tasks":[{"task":"A"},{"task":"B"},{"task":"C"}]}}`, 3, false},
		{"single task", `{"title":"A","hours":2}`, 1, false},
		{"empty array", `[]`, 0, false},
		{"unrelated object", `{"foo":1}`, 0, true},
		{"scalar", `42`, 0, true},
		{"null", `null`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractRecords(decodeJSON(t, tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractRecords() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidTaskSpec) {
					t.Errorf("error = %v, want ErrInvalidTaskSpec", err)
				}
				return
			}
			if len(got) != tt.want {
				t.Errorf("ExtractRecords() = %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		unit Unit
		want []Spec
	}{
		{
			name: "canonical fields",
			doc:  `[{"task":"Design","duration":2,"depends_on":[]},{"task":"Build","duration":5,"depends_on":["Design"]}]`,
			want: []Spec{
				{Name: "Design", Duration: 2, DependsOn: []string{}},
				{Name: "Build", Duration: 5, DependsOn: []string{"Design"}},
			},
		},
		{
			name: "aliases",
			doc:  `[{"name":"A","hours":1.5},{"title":"B","duration_hours":"2","depends":"A"},{"description":"C","dependencies":null}]`,
			want: []Spec{
				{Name: "A", Duration: 1.5, DependsOn: []string{}},
				{Name: "B", Duration: 2, DependsOn: []string{"A"}},
				{Name: "C", Duration: 0, DependsOn: []string{}},
			},
		},
		{
			name: "minutes",
			doc:  `[{"task":"A","duration_minutes":90},{"task":"B","minutes":"30"}]`,
			want: []Spec{
				{Name: "A", Duration: 1.5, DependsOn: []string{}},
				{Name: "B", Duration: 0.5, DependsOn: []string{}},
			},
		},
		{
			name: "duration in configured minutes",
			doc:  `[{"task":"A","duration":45}]`,
			unit: UnitMinutes,
			want: []Spec{{Name: "A", Duration: 0.75, DependsOn: []string{}}},
		},
		{
			name: "go duration string",
			doc:  `[{"task":"A","duration":"1h30m"},{"task":"B","estimate":"15m"}]`,
			want: []Spec{
				{Name: "A", Duration: 1.5, DependsOn: []string{}},
				{Name: "B", Duration: 0.25, DependsOn: []string{}},
			},
		},
		{
			name: "index dependencies",
			doc:  `[{"task":"A","duration":1},{"task":"B","duration":1,"depends_on":[0]},{"task":"C","duration":1,"depends_on":[1, "A", 9]}]`,
			want: []Spec{
				{Name: "A", Duration: 1, DependsOn: []string{}},
				{Name: "B", Duration: 1, DependsOn: []string{"A"}},
				{Name: "C", Duration: 1, DependsOn: []string{"B", "A", "#9"}},
			},
		},
		{
			name: "comma separated dependencies",
			doc:  `[{"task":"C","duration":1,"depends_on":"A, B"}]`,
			want: []Spec{{Name: "C", Duration: 1, DependsOn: []string{"A", "B"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ExtractRecords(decodeJSON(t, tt.doc))
			if err != nil {
				t.Fatalf("ExtractRecords() error = %v", err)
			}
			got, err := DecodeRecords(records, DecodeOptions{DurationUnit: tt.unit})
			if err != nil {
				t.Fatalf("DecodeRecords() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeRecords() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecodeRecordsErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{"record not object", `["A"]`, "tasks[0]"},
		{"name not string", `[{"task":7}]`, "tasks[0].task"},
		{"duration not number", `[{"task":"A","duration":"soon"}]`, "tasks[0].duration"},
		{"duration boolean", `[{"task":"A","hours":true}]`, "tasks[0].hours"},
		{"dependency object", `[{"task":"A","depends_on":{"x":1}}]`, "tasks[0].depends_on"},
		{"fractional index", `[{"task":"A"},{"task":"B","depends_on":[0.5]}]`, "tasks[1].depends_on[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ExtractRecords(decodeJSON(t, tt.doc))
			if err != nil {
				t.Fatalf("ExtractRecords() error = %v", err)
			}
			_, err = DecodeRecords(records, DecodeOptions{})
			if !errors.Is(err, ErrInvalidTaskSpec) {
				t.Fatalf("DecodeRecords() error = %v, want ErrInvalidTaskSpec", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("DecodeRecords() error = %T, want *ValidationError", err)
			}
			if ve.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", ve.Path, tt.wantPath)
			}
		})
	}
}

func TestValidateRecordsSchema(t *testing.T) {
	records, err := ExtractRecords(decodeJSON(t, `[{"task":"A","duration":1},{"duration":2}]`))
	if err != nil {
		t.Fatalf("ExtractRecords() error = %v", err)
	}
	errs := ValidateRecords(records)
	if len(errs) == 0 {
		t.Fatal("ValidateRecords() returned no errors for a record without a name")
	}
	for _, err := range errs {
		if !errors.Is(err, ErrInvalidTaskSpec) {
			t.Errorf("error = %v, want ErrInvalidTaskSpec", err)
		}
	}

	ok, _ := ExtractRecords(decodeJSON(t, `[{"task":"A","duration":"2","depends_on":[0,"B"]}]`))
	if errs := ValidateRecords(ok); len(errs) != 0 {
		t.Errorf("ValidateRecords() = %v, want no errors", errs)
	}
}
