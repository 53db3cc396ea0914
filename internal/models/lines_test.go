package models

import "testing"

func TestLineColor(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"M2", "#00A651"},
		{"m2", "#00A651"},
		{"M1A", "#E32119"},
		{"T1", "#0055A5"},
		{"500T", "#888888"},
		{"", "#888888"},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			if got := LineColor(tc.line); got != tc.expected {
				t.Errorf("LineColor(%q) = %q, expected %q", tc.line, got, tc.expected)
			}
		})
	}
}
