package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	derrors "github.com/ahmadMuhammadGd/nanosite/internal/foundation/errors"
	"github.com/ahmadMuhammadGd/nanosite/internal/logfields"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "nanosite.yaml"

// Load reads a configuration file, expands environment variables, normalizes
// names and enums, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "resolve configuration path").
			WithContext("path", configPath).Fatal().Build()
	}
	root := filepath.Dir(absPath)

	loaded, err := loadEnvFiles(root)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "load environment file").
			WithContext("path", root).Fatal().Build()
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment variables", logfields.Path(f))
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, derrors.NewError(derrors.CategoryNotFound, "configuration file not found").
				WithContext("path", configPath).Build()
		}
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "read configuration file").
			WithContext("path", configPath).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Root = root
	return cfg, nil
}

// Parse decodes and finalizes configuration bytes. Environment references
// ($VAR and ${VAR}) are expanded before decoding.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	res, err := NormalizeConfig(&cfg)
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "normalize config").Fatal().Build()
	}
	for _, w := range res.Warnings {
		slog.Warn("Configuration normalized", slog.String("detail", w))
	}

	if err := applyDefaults(&cfg); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "apply defaults").Fatal().Build()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes the default configuration to configPath. An existing file is
// only replaced when force is set.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return derrors.ValidationError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).
			WithContext("path", configPath).Build()
	}

	data, err := Default().Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "create configuration directory").Build()
		}
	}
	// #nosec G306 -- configuration file is meant to be shared
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "write configuration file").
			WithContext("path", configPath).Build()
	}
	return nil
}

// Marshal renders the configuration as YAML. Zero-valued ambient fields are
// omitted.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryInternal, "marshal config").Build()
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
