package slurm

import (
	"errors"
	"testing"
)

func TestParseVersionString(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"slurm 23.11.7", 23},
		{"slurm-wlm 22.05.9", 22},
		{"slurm 24.05.1\n", 24},
	}
	for _, test := range tests {
		got, err := ParseVersionString(test.input)
		if err != nil {
			t.Fatalf("ParseVersionString(%q): %v", test.input, err)
		}
		if got != test.want {
			t.Errorf("ParseVersionString(%q): expected %d, got %d", test.input, test.want, got)
		}
	}
	for _, input := range []string{"", "munge 0.5", "slurm x.y.z"} {
		if _, err := ParseVersionString(input); err == nil {
			t.Errorf("Expected an error for %q", input)
		}
	}
}

func TestFieldMapVersionRange(t *testing.T) {
	for _, major := range []int{22, 23, 24, 25} {
		if _, err := FieldMapFor(SourceScontrolJob, major); err != nil {
			t.Errorf("Expected a map for major %d: %v", major, err)
		}
	}
	for _, major := range []int{0, 21, 26} {
		_, err := FieldMapFor(SourceScontrolJob, major)
		var ve *UnsupportedVersionError
		if !errors.As(err, &ve) {
			t.Errorf("Expected UnsupportedVersionError for major %d, got %v", major, err)
		}
	}
}

func TestFieldMapOOMKillStep(t *testing.T) {
	// The step OOM field appeared in 24.05 and must be bound there but not earlier.
	older, err := FieldMapFor(SourceScontrolJob, 23)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := older["OOMKillStep"]; present {
		t.Errorf("OOMKillStep must not be bound for major 23")
	}
	newer, err := FieldMapFor(SourceScontrolJob, 24)
	if err != nil {
		t.Fatal(err)
	}
	if _, present := newer["OOMKillStep"]; !present {
		t.Errorf("OOMKillStep must be bound for major 24")
	}
}
