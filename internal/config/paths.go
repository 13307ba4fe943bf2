package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved file system locations of the application.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	CacheDir   string
	LogsDir    string
}

// Resolve builds Paths from the configured directories. Relative
// directories are joined to BaseDir, which defaults to the working directory.
func (c PathsConfig) Resolve() (*Paths, error) {
	base := c.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	join := func(dir string) string {
		if filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(base, dir)
	}
	return &Paths{
		BaseDir:    base,
		DataDir:    join(c.DataDir),
		ReportsDir: join(c.ReportsDir),
		CacheDir:   join(c.CacheDir),
		LogsDir:    join(c.LogsDir),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.CacheDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetDataPath returns the path of an input file. Absolute names are kept.
func (p *Paths) GetDataPath(filename string) string {
	return p.within(p.DataDir, filename)
}

// GetReportPath returns the path of an exported report.
func (p *Paths) GetReportPath(filename string) string {
	return p.within(p.ReportsDir, filename)
}

// GetCachePath returns the path of a cached payload.
func (p *Paths) GetCachePath(filename string) string {
	return p.within(p.CacheDir, filename)
}

// GetLogPath returns the path of a log file.
func (p *Paths) GetLogPath(filename string) string {
	return p.within(p.LogsDir, filename)
}

func (p *Paths) within(dir, filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(dir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
