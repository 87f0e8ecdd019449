package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	rdterrors "github.com/sdejongh/rdt/pkg/errors"
	"github.com/sdejongh/rdt/pkg/models"
)

// ExitError carries the process exit code of a finished command. Err is nil
// when the outcome has already been reported on the output.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if errors.Is(err, context.Canceled) || rdterrors.HasCode(err, rdterrors.CodeCancelled) {
		return models.StatusCancelled.ExitCode()
	}
	return models.StatusFailed.ExitCode()
}

// NewRootCommand creates the rdt command tree
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	root := &cobra.Command{
		Use:   "rdt",
		Short: "Local directory tree listing, comparison and synchronization",
		Long: `rdt walks directory trees in parallel, honouring gitignore-style rules,
compares them by metadata or content and makes a destination match a source.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(root, flags)

	root.AddCommand(NewListCommand(flags))
	root.AddCommand(NewCompareCommand(flags))
	root.AddCommand(NewSyncCommand(flags))
	root.AddCommand(NewConfigCommand(flags))
	root.AddCommand(NewVersionCommand())

	return root
}
