package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/rdt/pkg/config"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/output"
	"github.com/sdejongh/rdt/pkg/sync"
)

// NewCompareCommand creates the compare command
func NewCompareCommand(global *GlobalFlags) *cobra.Command {
	var (
		walkFlags    WalkFlags
		compareFlags CompareFlags
	)

	cmd := &cobra.Command{
		Use:   "compare SRC DST",
		Short: "Compare two directory trees",
		Long: `Compare source and destination trees and print one line per differing
path: "+" only in source, "-" only in destination, "x" changed.
Exits with status 1 when the trees differ.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, global, func(cfg *config.Config) {
				walkFlags.apply(cmd, cfg)
				compareFlags.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer s.close()

			if err := validatePaths(args[0], args[1], models.ModeCompare); err != nil {
				return err
			}

			op := newOperation(s.cfg, models.ModeCompare, args[0], args[1])
			report, err := sync.NewEngine(op, nil, s.logger, s.out).Run(cmd.Context())
			if err != nil {
				return err
			}

			if !s.cfg.Output.Quiet {
				if err := writeComparison(s, report, compareFlags.Unchanged); err != nil {
					return err
				}
			}
			if err := writeDiffReport(report, &compareFlags); err != nil {
				return err
			}

			if report.Differences > 0 {
				return &ExitError{Code: 1}
			}
			return nil
		},
	}

	addWalkFlags(cmd, &walkFlags)
	addCompareFlags(cmd, &compareFlags)
	cmd.Flags().BoolVarP(&compareFlags.Unchanged, "unchanged", "u", false, "also list unchanged paths")

	return cmd
}

// writeComparison prints the diff lines to stdout and warnings to stderr
func writeComparison(s *session, report *models.SyncReport, unchanged bool) error {
	listing := output.NewListing(s.out, s.cfg.Output.Format, s.color)
	for _, d := range report.Diffs {
		if err := listing.Diff(d, unchanged); err != nil {
			return err
		}
	}
	warnings := output.NewListing(s.errOut, s.cfg.Output.Format, output.ColorEnabled(s.errOut, s.cfg.Output.NoColor))
	return warnings.Warnings(report.Warnings)
}

// writeDiffReport writes the differences file when --diff-report is set
func writeDiffReport(report *models.SyncReport, flags *CompareFlags) error {
	if flags.DiffReport == "" {
		return nil
	}
	if err := output.WriteDifferencesReport(report, report.Diffs, flags.DiffReport, flags.DiffFormat); err != nil {
		return fmt.Errorf("failed to write differences report: %w", err)
	}
	return nil
}
