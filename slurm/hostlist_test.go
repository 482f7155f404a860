package slurm

import (
	"reflect"
	"testing"
)

func TestExpandHostList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"cn001", []string{"cn001"}},
		{"cn[001-003]", []string{"cn001", "cn002", "cn003"}},
		{"cn[001-002,017]", []string{"cn001", "cn002", "cn017"}},
		{"cn[1-2]-ib[0-1]", []string{"cn1-ib0", "cn1-ib1", "cn2-ib0", "cn2-ib1"}},
		{"gpu-a1,cn[8-9]", []string{"gpu-a1", "cn8", "cn9"}},
		{"", nil},
	}
	for _, test := range tests {
		got, err := ExpandHostList(test.input)
		if err != nil {
			t.Fatalf("ExpandHostList(%q): %v", test.input, err)
		}
		if len(got) == 0 && len(test.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, test.want) {
			t.Errorf("ExpandHostList(%q): expected %v, got %v", test.input, test.want, got)
		}
	}
}

func TestExpandHostListErrors(t *testing.T) {
	for _, input := range []string{"cn[3-1]", "cn[1-", "cn[a-b]"} {
		if _, err := ExpandHostList(input); err == nil {
			t.Errorf("Expected an error for %q", input)
		}
	}
}
