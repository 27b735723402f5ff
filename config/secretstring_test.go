package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	yaml "gopkg.in/yaml.v3"
)

func TestSecretString_Marshal(t *testing.T) {
	tests := []struct {
		name     string
		input    SecretString
		wantJSON string
		wantYAML any
	}{
		{"empty", "", "null", nil},
		{"short", "x", `"` + SecretStringValue + `"`, SecretStringValue},
		{"password", "my-secret-password", `"` + SecretStringValue + `"`, SecretStringValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tt.wantJSON {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.wantJSON)
			}
			y, err := tt.input.MarshalYAML()
			if err != nil {
				t.Fatalf("MarshalYAML() error = %v", err)
			}
			if y != tt.wantYAML {
				t.Errorf("MarshalYAML() = %v, want %v", y, tt.wantYAML)
			}
		})
	}
}

func TestSecretString_NoLeakage(t *testing.T) {
	const secret = "super-secret-password-12345"
	res := ResourcesConfig{User: "alice", Password: SecretString(secret)}

	outputs := map[string]func() (string, error){
		"json": func() (string, error) {
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			err := enc.Encode(res)
			return buf.String(), err
		},
		"json escaped": func() (string, error) {
			b, err := json.Marshal(res)
			return strings.ReplaceAll(strings.ReplaceAll(string(b), `\u003c`, "<"), `\u003e`, ">"), err
		},
		"yaml": func() (string, error) {
			b, err := yaml.Marshal(res)
			return string(b), err
		},
		"fmt": func() (string, error) {
			return fmt.Sprintf("%v %s", res, res.Password), nil
		},
	}
	for name, out := range outputs {
		t.Run(name, func(t *testing.T) {
			s, err := out()
			if err != nil {
				t.Fatalf("marshal error = %v", err)
			}
			if strings.Contains(s, secret) {
				t.Errorf("secret leaked: %s", s)
			}
			if !strings.Contains(s, SecretStringValue) {
				t.Errorf("secret placeholder missing: %s", s)
			}
		})
	}

	if res.Password.Reveal() != secret {
		t.Errorf("Reveal() = %q", res.Password.Reveal())
	}
}
