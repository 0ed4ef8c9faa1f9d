package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/smartcontractkit/permissioning-deployer/pkg/logger"
)

// DefaultFileName is the file the record is written to when no path is configured.
const DefaultFileName = "permission-config.json"

// Sink persists a PermissionConfig.
type Sink interface {
	Write(ctx context.Context, cfg PermissionConfig) error
}

var (
	_ Sink = (*FileSink)(nil)
	_ Sink = (*MemorySink)(nil)
)

// Format is the encoding of a written record.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension. Anything other than .yaml, .yml or
// .toml is JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Marshal encodes cfg in the format.
func (f Format) Marshal(cfg PermissionConfig) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(cfg, "", "  ")
	case FormatYAML:
		return yaml.Marshal(cfg)
	case FormatTOML:
		return toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// FileSink writes the record to a file.
type FileSink struct {
	path   string
	format Format
	lggr   logger.Logger
}

// NewFileSink returns a sink writing to path, or to DefaultFileName in the working directory
// when path is empty. The format follows the file extension.
func NewFileSink(path string, lggr logger.Logger) *FileSink {
	if path == "" {
		path = DefaultFileName
	}

	return &FileSink{
		path:   path,
		format: FormatFromPath(path),
		lggr:   lggr.Named("exporter"),
	}
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.path
}

// Write encodes cfg and replaces the file content.
func (s *FileSink) Write(ctx context.Context, cfg PermissionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := s.format.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode permission config as %s: %w", s.format, err)
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", s.path, err)
	}

	if err = os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", abs, err)
	}

	if err = os.WriteFile(abs, b, 0o644); err != nil { //nolint:gosec // G306: public addresses only
		return fmt.Errorf("failed to write permission config: %w", err)
	}

	s.lggr.Infof("Data written to file: %s", abs)

	return nil
}

// MemorySink keeps written records in memory.
type MemorySink struct {
	mu      sync.Mutex
	written []PermissionConfig
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write stores cfg.
func (s *MemorySink) Write(ctx context.Context, cfg PermissionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.written = append(s.written, cfg)

	return nil
}

// Written returns every stored record in write order.
func (s *MemorySink) Written() []PermissionConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]PermissionConfig(nil), s.written...)
}
