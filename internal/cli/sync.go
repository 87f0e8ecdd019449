package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sdejongh/rdt/pkg/config"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/sync"
)

// NewSyncCommand creates the sync command
func NewSyncCommand(global *GlobalFlags) *cobra.Command {
	var (
		walkFlags    WalkFlags
		compareFlags CompareFlags
		syncFlags    SyncFlags
	)

	cmd := &cobra.Command{
		Use:   "sync SRC DST",
		Short: "Make a destination tree match a source tree",
		Long: `Copy new and changed paths from source to destination, fix metadata,
and remove destination paths missing from the source (disable with --delete=false).
Exit status: 0 success, 1 partial, 2 failed, 3 cancelled.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, global, func(cfg *config.Config) {
				walkFlags.apply(cmd, cfg)
				compareFlags.apply(cmd, cfg)
				syncFlags.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer s.close()

			if err := validatePaths(args[0], args[1], models.ModeSync); err != nil {
				return err
			}

			op := newOperation(s.cfg, models.ModeSync, args[0], args[1])
			op.DryRun = syncFlags.DryRun

			formatter := newFormatter(s.cfg, s.out, s.color)
			report, err := sync.NewEngine(op, formatter, s.logger, s.out).Run(cmd.Context())
			if err != nil {
				return err
			}

			if formatter == nil {
				printFailures(s.errOut, report)
			}
			if err := writeDiffReport(report, &compareFlags); err != nil {
				return err
			}

			if code := report.Status.ExitCode(); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	addWalkFlags(cmd, &walkFlags)
	addCompareFlags(cmd, &compareFlags)
	addSyncFlags(cmd, &syncFlags)

	return cmd
}

// printFailures reports operations that did not succeed when no formatter
// printed the summary
func printFailures(w io.Writer, report *models.SyncReport) {
	for _, res := range report.Failures() {
		fmt.Fprintf(w, "%s %s: [%s] %s\n", res.Status, res.Operation.Path, res.Code, res.Error)
	}
}
