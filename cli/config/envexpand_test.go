package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("LS_SET", "real")
	t.Setenv("LS_EMPTY", "")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set", "url: ${LS_SET}", "url: real"},
		{"unset", "url: ${LS_UNSET_12345}", "url: "},
		{"default when unset", "url: ${LS_UNSET_12345:-fallback}", "url: fallback"},
		{"default ignored when set", "url: ${LS_SET:-fallback}", "url: real"},
		{"default when empty", "url: ${LS_EMPTY:-fallback}", "url: fallback"},
		{"empty default", "url: ${LS_UNSET_12345:-}", "url: "},
		{"default with colon", "addr: ${LS_UNSET_12345:-tcp://127.0.0.1:7000}", "addr: tcp://127.0.0.1:7000"},
		{"several", "${LS_SET}/${LS_UNSET_12345:-x}", "real/x"},
		{"bare dollar untouched", "cost: $5 and $LS_SET", "cost: $5 and $LS_SET"},
		{"invalid name untouched", "${1BAD}", "${1BAD}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.in); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
