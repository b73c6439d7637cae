package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/tfgraph/internal/fsutil"
)

// DefaultConfigPath is the conventional location of a tuning file. No file
// ships at this path, and the loaders here only read the path they are given.
const DefaultConfigPath = "config/buffer.defaults.json"

// FrameOverride narrows cache_time/max_extrapolation for one frame, letting
// a noisy or slow-publishing sensor carry a different retention window than
// the graph-wide default.
type FrameOverride struct {
	CacheTime        *string `json:"cache_time,omitempty"`
	MaxExtrapolation *string `json:"max_extrapolation,omitempty"`
}

// BufferTuning is the root configuration for a BufferCore: graph-wide
// defaults plus optional per-frame overrides, read once at startup.
type BufferTuning struct {
	CacheTime        *string                  `json:"cache_time,omitempty"`
	MaxExtrapolation *string                  `json:"max_extrapolation,omitempty"`
	FrameOverrides   map[string]FrameOverride `json:"frame_overrides,omitempty"`
}

// EmptyBufferTuning returns a BufferTuning with all fields unset.
func EmptyBufferTuning() *BufferTuning {
	return &BufferTuning{}
}

// LoadBufferTuning loads a BufferTuning from a JSON file on the real
// filesystem. See LoadBufferTuningFS for the testable form.
func LoadBufferTuning(path string) (*BufferTuning, error) {
	return LoadBufferTuningFS(fsutil.OSFileSystem{}, path)
}

// LoadBufferTuningFS loads a BufferTuning from a JSON file through fs. The
// file must have a .json extension and be under the max file size; fields
// omitted from the document retain their defaults, so partial configs are
// safe. Tests substitute an fsutil.MemoryFileSystem to avoid touching disk.
func LoadBufferTuningFS(fs fsutil.FileSystem, path string) (*BufferTuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fs.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fs.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyBufferTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every duration string, if present, actually parses.
func (c *BufferTuning) Validate() error {
	if c.CacheTime != nil {
		if _, err := time.ParseDuration(*c.CacheTime); err != nil {
			return fmt.Errorf("invalid cache_time %q: %w", *c.CacheTime, err)
		}
	}
	if c.MaxExtrapolation != nil {
		if _, err := time.ParseDuration(*c.MaxExtrapolation); err != nil {
			return fmt.Errorf("invalid max_extrapolation %q: %w", *c.MaxExtrapolation, err)
		}
	}
	for frame, ov := range c.FrameOverrides {
		if ov.CacheTime != nil {
			if _, err := time.ParseDuration(*ov.CacheTime); err != nil {
				return fmt.Errorf("frame %q: invalid cache_time %q: %w", frame, *ov.CacheTime, err)
			}
		}
		if ov.MaxExtrapolation != nil {
			if _, err := time.ParseDuration(*ov.MaxExtrapolation); err != nil {
				return fmt.Errorf("frame %q: invalid max_extrapolation %q: %w", frame, *ov.MaxExtrapolation, err)
			}
		}
	}
	return nil
}

// GetCacheTime returns CacheTime parsed as a time.Duration, or
// tf.DefaultCacheTime if unset or unparseable.
func (c *BufferTuning) GetCacheTime() time.Duration {
	return parseDurationOr(c.CacheTime, 10*time.Second)
}

// GetMaxExtrapolation returns MaxExtrapolation parsed as a time.Duration,
// or zero (no extrapolation allowed) if unset or unparseable.
func (c *BufferTuning) GetMaxExtrapolation() time.Duration {
	return parseDurationOr(c.MaxExtrapolation, 0)
}

// FrameCacheTime returns the effective cache time for frame, applying its
// override if one is configured, otherwise the graph-wide default.
func (c *BufferTuning) FrameCacheTime(frame string) time.Duration {
	if ov, ok := c.FrameOverrides[frame]; ok && ov.CacheTime != nil {
		return parseDurationOr(ov.CacheTime, c.GetCacheTime())
	}
	return c.GetCacheTime()
}

// FrameMaxExtrapolation returns the effective extrapolation tolerance for
// frame, applying its override if one is configured, otherwise the
// graph-wide default.
func (c *BufferTuning) FrameMaxExtrapolation(frame string) time.Duration {
	if ov, ok := c.FrameOverrides[frame]; ok && ov.MaxExtrapolation != nil {
		return parseDurationOr(ov.MaxExtrapolation, c.GetMaxExtrapolation())
	}
	return c.GetMaxExtrapolation()
}

func parseDurationOr(s *string, fallback time.Duration) time.Duration {
	if s == nil || *s == "" {
		return fallback
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fallback
	}
	return d
}
