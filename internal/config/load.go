package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/featherbox/featherbox/internal/domain"
)

// Project layout on disk:
//
//	project.yml
//	adapters/<name>.yml
//	models/<path...>/<name>.yml
//
// The file stem is the node name; for nested models the relative path
// (slash-separated, without extension) is recorded as ModelConfig.Path.
const (
	projectFile = "project.yml"
	adaptersDir = "adapters"
	modelsDir   = "models"
)

// LoadProject reads a full project configuration from dir and validates it.
func LoadProject(dir string) (*Config, error) {
	cfg := &Config{
		Adapters: map[string]AdapterConfig{},
		Models:   map[string]ModelConfig{},
	}

	data, err := os.ReadFile(filepath.Join(dir, projectFile))
	if err != nil {
		return nil, domain.ErrConfigInvalid("read %s: %v", projectFile, err)
	}
	if err := yaml.Unmarshal(data, &cfg.Project); err != nil {
		return nil, domain.ErrConfigInvalid("parse %s: %v", projectFile, err)
	}

	if err := loadAdapters(filepath.Join(dir, adaptersDir), cfg); err != nil {
		return nil, err
	}
	if err := loadModels(filepath.Join(dir, modelsDir), cfg); err != nil {
		return nil, err
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadAdapters(dir string, cfg *Config) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return domain.ErrConfigInvalid("read adapters dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isYAML(e.Name()) {
			continue
		}
		name := stem(e.Name())
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return domain.ErrConfigInvalid("read adapter %q: %v", name, err)
		}
		var a AdapterConfig
		if err := yaml.Unmarshal(data, &a); err != nil {
			return domain.ErrConfigInvalid("parse adapter %q: %v", name, err)
		}
		cfg.Adapters[name] = a
	}
	return nil
}

func loadModels(dir string, cfg *Config) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := stem(d.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read model %q: %w", name, err)
		}
		var m ModelConfig
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parse model %q: %w", name, err)
		}
		m.Path = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
		if prev, dup := cfg.Models[name]; dup {
			return fmt.Errorf("model name %q declared at both %q and %q", name, prev.Path, m.Path)
		}
		cfg.Models[name] = m
		return nil
	})
	if err != nil {
		return domain.ErrConfigInvalid("load models: %v", err)
	}
	return nil
}

// finish resolves derived fields after unmarshalling: human-readable
// sizes are parsed once so the hot path never re-parses them.
func (c *Config) finish() error {
	for name, a := range c.Adapters {
		if a.Limits != nil && a.Limits.MaxSize != "" {
			n, err := ParseSize(a.Limits.MaxSize)
			if err != nil {
				return domain.ErrConfigInvalid("adapter %q: max_size: %v", name, err)
			}
			a.Limits.maxSizeBytes = n
			c.Adapters[name] = a
		}
	}
	return nil
}

// ParseSize parses a human-readable byte size such as "512", "100KB",
// "1.5MB", or "2GB". Unit suffixes are case-insensitive and decimal.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	upper := strings.ToUpper(s)
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		factor int64
	}{
		{"TB", 1 << 40}, {"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}, {"B", 1},
	} {
		if strings.HasSuffix(upper, u.suffix) {
			mult = u.factor
			upper = strings.TrimSuffix(upper, u.suffix)
			break
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(upper), 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int64(f * float64(mult)), nil
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
