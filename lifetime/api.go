// Package lifetime provides runtime-checked ownership and borrowing.
//
// See doc.go for detailed documentation and examples.
package lifetime

import (
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/kolkov/lifetime/internal/config"
	"github.com/kolkov/lifetime/internal/lifetime/cell"
	"github.com/kolkov/lifetime/internal/lifetime/violation"
	"github.com/kolkov/lifetime/internal/observability"
)

// Cell is a handle to an ownership-tracked value. See [From].
type Cell[T any] = cell.Cell[T]

// Option configures the group created by [From].
type Option[T any] = cell.Option[T]

// Cloner is implemented by values that deep-copy themselves.
type Cloner[T any] = cell.Cloner[T]

// ViolationError is returned by operations that break the discipline.
type ViolationError = cell.ViolationError

// Report describes one violation.
type Report = violation.Report

// Config is the runtime configuration. See [LoadConfig].
type Config = config.Config

// Sentinel errors. Match with errors.Is.
var (
	ErrAccessViolation = cell.ErrAccessViolation
	ErrBorrowConflict  = cell.ErrBorrowConflict
	ErrNotOwner        = cell.ErrNotOwner
	ErrSelfTransfer    = cell.ErrSelfTransfer
	ErrForeignTarget   = cell.ErrForeignTarget
	ErrDanglingAlias   = cell.ErrDanglingAlias
	ErrReleased        = cell.ErrReleased
)

// From creates a new value group holding value and returns its owner.
//
// Example:
//
//	a := lifetime.From(15)
//	defer a.Drop()
func From[T any](value T, opts ...Option[T]) *Cell[T] {
	return cell.From(value, opts...)
}

// WithCopier sets the deep-copy function used by Clone.
func WithCopier[T any](copier func(T) T) Option[T] {
	return cell.WithCopier(copier)
}

// IsFatal reports whether err is a fatal violation (an owner released
// while aliases remain).
func IsFatal(err error) bool {
	return cell.IsFatal(err)
}

// LoadConfig resolves defaults, the optional file at path, and the
// LIFETIME_* environment variables.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// Configure installs cfg as the process-wide runtime configuration.
// Fatal reports are written to stderr.
//
// Example:
//
//	cfg, err := lifetime.LoadConfig("lifetime.toml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := lifetime.Configure(cfg); err != nil {
//		log.Fatal(err)
//	}
func Configure(cfg Config) error {
	return ConfigureOutput(cfg, os.Stderr)
}

// ConfigureOutput is Configure with an explicit destination for logs and
// fatal reports.
func ConfigureOutput(cfg Config, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, _ := violation.ParsePolicy(cfg.Policy)
	level, _ := observability.ParseLevel(cfg.Log.Level)

	logger := observability.NewLogger(observability.LogOptions{
		App:     "lifetime",
		Level:   level,
		JSON:    cfg.Log.JSON,
		NoColor: cfg.Log.NoColor,
		Out:     out,
	})
	reporter := violation.NewReporter(violation.Options{
		Logger: logger,
		Policy: policy,
		Dedup:  cfg.Dedup,
		Out:    out,
		Color:  !cfg.Log.NoColor && !cfg.Log.JSON && !color.NoColor,
	})
	cell.Configure(cell.Runtime{
		Reporter:      reporter,
		Logger:        logger,
		CaptureStacks: cfg.CaptureStacks,
	})
	return nil
}

// Reports returns the violations recorded since the last Configure,
// oldest first.
func Reports() []*Report {
	return cell.CurrentReporter().Reports()
}

// DumpReports writes the recorded violations to w in msgpack form.
func DumpReports(w io.Writer) error {
	return cell.CurrentReporter().Dump(w)
}

// ReadReports decodes a dump written by DumpReports.
func ReadReports(r io.Reader) ([]*Report, error) {
	return violation.Decode(r)
}
