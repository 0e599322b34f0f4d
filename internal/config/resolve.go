package config

import (
	"fmt"
	"os"
	"strings"
)

// Resolver expands "$VAR" and "${VAR}" references in configuration values.
type Resolver struct {
	lookup func(string) (string, bool)
}

// NewResolver returns a resolver over the process environment.
func NewResolver() *Resolver {
	return &Resolver{lookup: os.LookupEnv}
}

// Resolve returns value with a leading variable reference expanded. Values
// that are not references are returned unchanged. A reference to an unset
// or empty variable is an error.
func (r *Resolver) Resolve(value string) (string, error) {
	name, ok := varName(value)
	if !ok {
		return value, nil
	}
	v, found := r.lookup(name)
	if !found || v == "" {
		return "", fmt.Errorf("environment variable %s is not set", name)
	}
	return v, nil
}

// varName extracts NAME from "$NAME" or "${NAME}".
func varName(value string) (string, bool) {
	if !strings.HasPrefix(value, "$") {
		return "", false
	}
	name := strings.TrimPrefix(value, "$")
	if strings.HasPrefix(name, "{") {
		if !strings.HasSuffix(name, "}") {
			return "", false
		}
		name = name[1 : len(name)-1]
	}
	if name == "" || strings.ContainsAny(name, " /:") {
		return "", false
	}
	return name, true
}
