package cli

import (
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/rdt/internal/platform"
	"github.com/sdejongh/rdt/pkg/config"
	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/logging"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/output"
	"github.com/sdejongh/rdt/pkg/ratelimit"
)

// session is the resolved configuration and logger of one command
type session struct {
	cfg    *config.Config
	logger logging.Logger
	out    io.Writer
	errOut io.Writer
	color  bool
}

// newSession loads the configuration, lets the command override it with
// its flags, then applies the global flags and builds the logger
func newSession(cmd *cobra.Command, flags *GlobalFlags, override func(*config.Config)) (*session, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	applyGlobalFlags(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return nil, rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, "", "invalid configuration")
	}

	errOut := cmd.ErrOrStderr()
	logger, err := newLogger(cfg, flags, errOut)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	return &session{
		cfg:    cfg,
		logger: logger,
		out:    out,
		errOut: errOut,
		color:  output.ColorEnabled(out, cfg.Output.NoColor),
	}, nil
}

func (s *session) close() {
	_ = s.logger.Close()
}

// loadConfig loads configuration from file or returns default
func loadConfig(flags *GlobalFlags) (*config.Config, error) {
	if flags.ConfigFile != "" {
		return config.LoadFromFile(flags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyGlobalFlags overrides config values with the global flags
func applyGlobalFlags(cfg *config.Config, flags *GlobalFlags) {
	if flags.Quiet {
		cfg.Output.Quiet = true
		cfg.Output.Progress = false
	}
	if flags.NoColor {
		cfg.Output.NoColor = true
	}
	if flags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = flags.LogFile
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		cfg.Logging.Format = flags.LogFormat
	}
}

// consoleLevel maps -q and -v to the stderr log level
func consoleLevel(flags *GlobalFlags) logging.Level {
	switch {
	case flags.Quiet:
		return logging.ErrorLevel
	case flags.Verbose >= 2:
		return logging.DebugLevel
	case flags.Verbose == 1:
		return logging.InfoLevel
	default:
		return logging.WarnLevel
	}
}

// newLogger creates the stderr logger, also writing to a rotated file when
// file logging is enabled
func newLogger(cfg *config.Config, flags *GlobalFlags, stderr io.Writer) (logging.Logger, error) {
	console := consoleLevel(flags)
	lc := logging.Config{
		Level:        console,
		ConsoleLevel: console,
		Format:       logging.Format(cfg.Logging.Format),
		Console:      stderr,
		NoColor:      !output.ColorEnabled(stderr, cfg.Output.NoColor),
	}

	if cfg.Logging.Enabled {
		lc.File = cfg.Logging.File
		if lc.File == "" {
			lc.File = logging.DefaultLogPath()
		}
		lc.MaxSize = cfg.Logging.MaxSize
		lc.MaxBackups = cfg.Logging.MaxBackups
		if level := logging.ParseLevel(cfg.Logging.Level); level < lc.Level {
			lc.Level = level
		}
	}

	return logging.New(lc)
}

// newOperation creates a run from the resolved configuration
func newOperation(cfg *config.Config, mode models.RunMode, source, dest string) *models.SyncOperation {
	op := &models.SyncOperation{
		ID:              uuid.New().String(),
		SourcePath:      source,
		DestPath:        dest,
		Mode:            mode,
		ExcludePatterns: cfg.Exclude,
		RuleFiles:       cfg.Walk.RuleFiles,
		NoIgnore:        cfg.Walk.NoIgnore,
		IncludeHidden:   cfg.Walk.IncludeHidden,
		FollowSymlinks:  cfg.Walk.FollowSymlinks,
		ExactComparison: cfg.Compare.Exact,
		TimeTolerance:   cfg.Compare.TimeTolerance,
		Delete:          cfg.Sync.Delete,
		CreateDest:      cfg.Sync.CreateDest,
		Concurrency:     cfg.Walk.Concurrency,
		BufferSize:      cfg.Compare.BufferSize,
		CreatedAt:       time.Now(),
	}
	if mode == models.ModeSync {
		op.Concurrency = cfg.Sync.Concurrency
		op.WalkConcurrency = cfg.Walk.Concurrency
		// Validated with the configuration
		op.BandwidthLimit, _ = ratelimit.ParseRate(cfg.Sync.BandwidthLimit)
	}
	return op
}

// validatePaths rejects identical roots, and for sync roots nested in each
// other. Existence is checked when the run opens them.
func validatePaths(source, dest string, mode models.RunMode) error {
	sourceAbs, err := filepath.Abs(source)
	if err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, source, "failed to resolve source path")
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return rdterrors.Wrap(err, rdterrors.CodeInvalidConfig, dest, "failed to resolve destination path")
	}

	if sourceAbs == destAbs {
		return rdterrors.New(rdterrors.CodeInvalidConfig, sourceAbs, "source and destination cannot be the same")
	}
	if mode != models.ModeSync {
		return nil
	}

	src, dst := filepath.ToSlash(sourceAbs), filepath.ToSlash(destAbs)
	if platform.IsWithin(dst, src) {
		return rdterrors.New(rdterrors.CodeInvalidConfig, destAbs, "destination cannot be inside source directory")
	}
	if platform.IsWithin(src, dst) {
		return rdterrors.New(rdterrors.CodeInvalidConfig, sourceAbs, "source cannot be inside destination directory")
	}
	return nil
}

// newFormatter picks the sync output. Quiet runs get none.
func newFormatter(cfg *config.Config, w io.Writer, useColor bool) output.Formatter {
	switch {
	case cfg.Output.Format == "json":
		return output.NewJSONFormatter(w)
	case cfg.Output.Quiet:
		return nil
	case cfg.Output.Progress && output.IsTerminal(w):
		return output.NewProgressFormatter(w, useColor)
	default:
		return output.NewHumanFormatter(w, useColor)
	}
}
