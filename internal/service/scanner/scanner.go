// Package scanner resolves command-line paths into the C# files an analysis
// should load.
package scanner

import (
	"path/filepath"

	"github.com/panbanda/dormant/internal/scanner"
	"github.com/panbanda/dormant/pkg/config"
)

// ScanResult contains the result of a file scan.
type ScanResult struct {
	Files     []string
	Oversized int
}

// Service provides file scanning functionality.
type Service struct {
	config *config.Config
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// New creates a new scanner service.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.DefaultConfig()
	}
	return s
}

// ScanPaths scans paths and returns the C# files found, minus any larger than
// the configured maximum. No paths means the current directory.
func (s *Service) ScanPaths(paths []string) (*ScanResult, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	abs := make([]string, 0, len(paths))
	for _, path := range paths {
		p, err := filepath.Abs(path)
		if err != nil {
			return nil, &PathError{Path: path, Err: err}
		}
		abs = append(abs, p)
	}

	files, err := scanner.NewScanner(s.config).ScanPaths(abs)
	if err != nil {
		return nil, &ScanError{Err: err}
	}

	files, oversized := scanner.FilterBySize(files, s.config.Analysis.MaxFileSize)
	return &ScanResult{Files: files, Oversized: oversized}, nil
}

// PathError indicates an invalid path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a scanning failure.
type ScanError struct {
	Err error
}

func (e *ScanError) Error() string {
	return "failed to scan: " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
