package builtin

import (
	"testing"

	"roas/pkg/records"
)

func TestRequireApply(t *testing.T) {
	in := []records.Record{
		{"id": "1", "name": "a"},
		{"id": "", "name": "b"},
		{"name": "c"},
		{"id": nil},
		{"id": "5"},
		{"id": 0},
	}
	out := Require{Fields: []string{"id"}}.Apply(in)

	want := []int{0, 4, 5}
	if len(out) != len(want) {
		t.Fatalf("survivors=%d, want %d", len(out), len(want))
	}
	for i, idx := range want {
		if out[i]["id"] != in[idx]["id"] {
			t.Fatalf("row %d = %v, want input[%d]", i, out[i], idx)
		}
	}
}
