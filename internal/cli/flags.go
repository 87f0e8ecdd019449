package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/rdt/pkg/config"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    int
	Quiet      bool
	LogFile    string
	LogLevel   string
	LogFormat  string
	NoColor    bool
}

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "config file (default is "+config.DefaultConfigPath()+")")
	pf.CountVarP(&flags.Verbose, "verbose", "v", "log progress to stderr (-vv for debug)")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-error output")
	pf.StringVar(&flags.LogFile, "log-file", "", "write logs to file (enables file logging)")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log file level: debug, info, warn, error")
	pf.StringVar(&flags.LogFormat, "log-format", "", "log format: text, json")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
}

// WalkFlags control traversal and exclusion
type WalkFlags struct {
	Exclude     []string
	Follow      bool
	Hidden      bool
	NoIgnore    bool
	Concurrency int
}

func addWalkFlags(cmd *cobra.Command, flags *WalkFlags) {
	f := cmd.Flags()
	f.StringArrayVar(&flags.Exclude, "exclude", nil, "gitignore-style pattern to exclude (repeatable)")
	f.BoolVarP(&flags.Follow, "follow", "L", false, "follow symbolic links")
	f.BoolVarP(&flags.Hidden, "hidden", "H", false, "include hidden files and directories")
	f.BoolVarP(&flags.NoIgnore, "no-ignore", "I", false, "do not read per-directory ignore files")
	f.IntVarP(&flags.Concurrency, "concurrency", "j", 0, "number of parallel workers (default: number of CPUs)")
}

// apply overrides the configuration with the flags set on the command line.
// Exclude patterns are appended so they win over configured ones.
func (w *WalkFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, w.Exclude...)
	}
	if f.Changed("follow") {
		cfg.Walk.FollowSymlinks = w.Follow
	}
	if f.Changed("hidden") {
		cfg.Walk.IncludeHidden = w.Hidden
	}
	if f.Changed("no-ignore") {
		cfg.Walk.NoIgnore = w.NoIgnore
	}
	if f.Changed("concurrency") {
		cfg.Walk.Concurrency = w.Concurrency
		cfg.Sync.Concurrency = w.Concurrency
	}
}

// CompareFlags control comparison and reporting
type CompareFlags struct {
	Exact         bool
	TimeTolerance time.Duration
	Unchanged     bool
	Output        string
	DiffReport    string
	DiffFormat    string
}

func addCompareFlags(cmd *cobra.Command, flags *CompareFlags) {
	f := cmd.Flags()
	f.BoolVarP(&flags.Exact, "check-content", "C", false, "hash equal-sized files to detect content changes")
	f.DurationVar(&flags.TimeTolerance, "time-tolerance", 0, "treat modification times within this duration as equal")
	f.StringVarP(&flags.Output, "output", "o", "", "output format: human, json")
	f.StringVar(&flags.DiffReport, "diff-report", "", "write differences report to file")
	f.StringVar(&flags.DiffFormat, "diff-format", "human", "differences report format: human, json")
}

func (c *CompareFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("check-content") {
		cfg.Compare.Exact = c.Exact
	}
	if f.Changed("time-tolerance") {
		cfg.Compare.TimeTolerance = c.TimeTolerance
	}
	if f.Changed("output") {
		cfg.Output.Format = c.Output
	}
}

// SyncFlags hold the sync-only options
type SyncFlags struct {
	DryRun     bool
	Delete     bool
	CreateDest bool
	Bandwidth  string
}

func addSyncFlags(cmd *cobra.Command, flags *SyncFlags) {
	f := cmd.Flags()
	f.BoolVar(&flags.DryRun, "dry-run", false, "plan the sync without touching the destination")
	f.BoolVar(&flags.Delete, "delete", true, "remove destination paths that don't exist in source")
	f.BoolVar(&flags.CreateDest, "create-dest", false, "create destination directory if it doesn't exist")
	f.StringVarP(&flags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")
}

func (s *SyncFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("delete") {
		cfg.Sync.Delete = s.Delete
	}
	if f.Changed("create-dest") {
		cfg.Sync.CreateDest = s.CreateDest
	}
	if f.Changed("bandwidth") {
		cfg.Sync.BandwidthLimit = s.Bandwidth
	}
}
