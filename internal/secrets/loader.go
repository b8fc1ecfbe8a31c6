// Package secrets resolves credentials such as the Gemini API key.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source lists the places a secret may come from. The first non-empty one
// in the order File, Env, Value is used.
type Source struct {
	// Name describes the secret in errors.
	Name  string
	File  string
	Env   string
	Value string
}

// Load returns the trimmed secret. A configured file that cannot be read or
// is empty is an error even when other sources are set.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	return "", fmt.Errorf("%s is not configured", name)
}
