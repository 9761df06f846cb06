package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// Built-in provider names.
const (
	EnvProviderName  = "env"
	FileProviderName = "file"
)

// EnvProvider resolves refs as environment variable names, optionally
// prefixed.
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an env provider. With prefix "APICALL_", the ref
// "SHODAN_KEY" reads APICALL_SHODAN_KEY.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix, lookup: os.LookupEnv}
}

// NewEnvProviderFactory returns a factory reading the optional "prefix" key.
func NewEnvProviderFactory() ProviderFactory {
	return func(cfg map[string]any) (Provider, error) {
		prefix, _ := cfg["prefix"].(string)
		return NewEnvProvider(prefix), nil
	}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return EnvProviderName }

// Resolve returns the variable value.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(p.prefix + ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s%s", ErrNotFound, p.prefix, ref)
	}
	return v, nil
}

// Close is a no-op.
func (p *EnvProvider) Close() error { return nil }

// FileProvider resolves refs as file paths. "path" returns the whole file
// with surrounding whitespace trimmed; "path#key" reads a YAML (or JSON)
// mapping and returns the value under key. Relative paths are resolved
// against the provider's base directory.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a file provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

// NewFileProviderFactory returns a factory reading the optional "dir" key.
func NewFileProviderFactory() ProviderFactory {
	return func(cfg map[string]any) (Provider, error) {
		dir, _ := cfg["dir"].(string)
		return NewFileProvider(dir), nil
	}
}

// Name returns "file".
func (p *FileProvider) Name() string { return FileProviderName }

// Resolve reads the referenced file or key.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path, key, _ := strings.Cut(ref, "#")
	if path == "" {
		return "", ErrInvalidRef
	}
	if !filepath.IsAbs(path) && p.dir != "" {
		path = filepath.Join(p.dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if key == "" {
		return strings.TrimSpace(string(data)), nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("secret: parse %s: %w", path, err)
	}
	v, ok := doc[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: key %q in %s", ErrNotFound, key, path)
	}
	return fmt.Sprint(v), nil
}

// Close is a no-op.
func (p *FileProvider) Close() error { return nil }

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
