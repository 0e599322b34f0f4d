package config

import "testing"

func TestResolver_Resolve(t *testing.T) {
	r := &Resolver{lookup: func(name string) (string, bool) {
		switch name {
		case "SET":
			return "value", true
		case "EMPTY":
			return "", true
		}
		return "", false
	}}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"$SET", "value", false},
		{"${SET}", "value", false},
		{"plain", "plain", false},
		{"", "", false},
		{"$", "$", false},
		{"${SET", "${SET", false},
		{"$MISSING", "", true},
		{"$EMPTY", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := r.Resolve(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
