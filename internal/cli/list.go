package cli

import (
	"github.com/spf13/cobra"

	"github.com/sdejongh/rdt/pkg/config"
	"github.com/sdejongh/rdt/pkg/models"
	"github.com/sdejongh/rdt/pkg/output"
	"github.com/sdejongh/rdt/pkg/sync"
)

// NewListCommand creates the list command
func NewListCommand(global *GlobalFlags) *cobra.Command {
	var (
		walkFlags WalkFlags
		format    string
	)

	cmd := &cobra.Command{
		Use:   "list DIR",
		Short: "List the entries of a directory tree",
		Long: `Walk a directory tree and print every entry that is not excluded,
one per line in human format or one JSON object per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, global, func(cfg *config.Config) {
				walkFlags.apply(cmd, cfg)
				if cmd.Flags().Changed("output") {
					cfg.Output.Format = format
				}
			})
			if err != nil {
				return err
			}
			defer s.close()

			op := newOperation(s.cfg, models.ModeList, args[0], "")
			listing := output.NewListing(s.out, s.cfg.Output.Format, s.color)

			res, err := sync.NewEngine(op, nil, s.logger, s.out).List(cmd.Context(), listing.Entry)
			if err != nil {
				return err
			}
			if !s.cfg.Output.Quiet {
				warnings := output.NewListing(s.errOut, s.cfg.Output.Format, output.ColorEnabled(s.errOut, s.cfg.Output.NoColor))
				return warnings.Warnings(res.Warnings)
			}
			return nil
		},
	}

	addWalkFlags(cmd, &walkFlags)
	cmd.Flags().StringVarP(&format, "output", "o", "", "output format: human, json")

	return cmd
}
