package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ProjectFileName is the key-value project configuration file,
// discovered by walking parent directories from the source file.
const ProjectFileName = "gg.env"

// Project holds the project-scoped configuration the core consumes.
type Project struct {
	// GCEnabled is true unless garbage_collector=disabled.
	GCEnabled bool
	// MemoryLimit in bytes; zero means unlimited.
	MemoryLimit int64
	// BuildLog is the compile-log DSN; empty disables recording.
	BuildLog string
	// Path of the configuration file, empty when none was found.
	Path string
}

func defaults() *Project {
	return &Project{GCEnabled: true}
}

// Discover walks from the given directory toward the filesystem root
// looking for a project file. When none exists the defaults apply.
func Discover(dir string) (*Project, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ProjectFileName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return defaults(), nil
		}
		dir = parent
	}
}

// Load reads and validates a project file.
func Load(path string) (*Project, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	p := defaults()
	p.Path = path

	if gc, ok := values["garbage_collector"]; ok {
		switch strings.ToLower(strings.TrimSpace(gc)) {
		case "enabled", "":
			p.GCEnabled = true
		case "disabled":
			p.GCEnabled = false
		default:
			return nil, fmt.Errorf("invalid garbage_collector value %q (want enabled or disabled)", gc)
		}
	}

	if limit, ok := values["memory_limit"]; ok {
		bytes, err := ParseMemoryLimit(limit)
		if err != nil {
			return nil, err
		}
		p.MemoryLimit = bytes
	}

	if log, ok := values["build_log"]; ok {
		switch v := strings.TrimSpace(log); strings.ToLower(v) {
		case "", "disabled":
			// recording stays off
		case "enabled", "default":
			p.BuildLog = filepath.Join(filepath.Dir(path), ".gg", "buildlog.db")
		default:
			p.BuildLog = v
		}
	}

	if !p.GCEnabled && p.MemoryLimit > 0 {
		return nil, fmt.Errorf("memory_limit cannot be combined with garbage_collector=disabled")
	}
	return p, nil
}

// ParseMemoryLimit parses a sized value like "64MB", "512k" or plain
// bytes. Unit suffixes are case-insensitive; 0 means unlimited.
func ParseMemoryLimit(value string) (int64, error) {
	s := strings.TrimSpace(strings.ToUpper(value))
	if s == "" {
		return 0, fmt.Errorf("empty memory_limit value")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "KB"):
		multiplier, s = 1024, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "MB"):
		multiplier, s = 1024*1024, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "GB"):
		multiplier, s = 1024*1024*1024, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "K"):
		multiplier, s = 1024, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier, s = 1024*1024, strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier, s = 1024*1024*1024, strings.TrimSuffix(s, "G")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory_limit value %q", value)
	}
	if n < 0 {
		return 0, fmt.Errorf("memory_limit cannot be negative")
	}
	return n * multiplier, nil
}
