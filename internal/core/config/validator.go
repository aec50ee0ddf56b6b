package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate reports every problem found in cfg, joined.
func Validate(cfg *Config) error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateScan,
		validatePlanner,
		validateStream,
		validateDatabase,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	for i, ext := range cfg.Scan.Extensions {
		if ext == "" || ext == "." {
			return fmt.Errorf("scan.extensions[%d] must not be empty", i)
		}
	}
	for _, group := range []struct {
		key      string
		patterns []string
	}{
		{"scan.exclude_dirs", cfg.Scan.ExcludeDirs},
		{"scan.exclude_files", cfg.Scan.ExcludeFiles},
	} {
		for i, pattern := range group.patterns {
			if strings.TrimSpace(pattern) == "" {
				return fmt.Errorf("%s[%d] must not be empty", group.key, i)
			}
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("%s[%d] %q is not a valid glob: %w", group.key, i, pattern, err)
			}
		}
	}
	return nil
}

func validatePlanner(cfg *Config) error {
	if cfg.Planner.MaxReferenceAtoms < 1 {
		return fmt.Errorf("planner.max_reference_atoms must be >= 1, got %d", cfg.Planner.MaxReferenceAtoms)
	}
	return nil
}

func validateStream(cfg *Config) error {
	if cfg.Stream.BufferSize < 1 {
		return fmt.Errorf("stream.buffer_size must be >= 1, got %d", cfg.Stream.BufferSize)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if cfg.DB.Project == "" {
		return fmt.Errorf("db.project must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", cfg.Watch.Debounce)
	}
	if cfg.Watch.MaxFilesPerSecond < 0 {
		return fmt.Errorf("watch.max_files_per_second must not be negative, got %v", cfg.Watch.MaxFilesPerSecond)
	}
	return nil
}
