package storage

import "testing"

func TestInputKey(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"KeepsExtension", "refs.csv", "stores/s1/f1.csv"},
		{"LowersExtension", "Refs.CSV", "stores/s1/f1.csv"},
		{"NoExtension", "refs", "stores/s1/f1"},
		{"DirectoryIgnored", "a.b/refs.tsv", "stores/s1/f1.tsv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InputKey("s1", "f1", tt.file); got != tt.want {
				t.Fatalf("InputKey = %q, want %q", got, tt.want)
			}
		})
	}
}
