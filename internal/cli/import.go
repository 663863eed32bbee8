package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/harness"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <scenario.yaml>",
		Short: "Apply a scenario's objects and steps to the configured store",
		Long: `Apply a scenario file to the configured store.

Declared objects are looked up or created; steps are disclosed in order
under this invocation's session. Assertions are not evaluated.

Exit codes:
  0 - Every step met its expectation
  1 - A step did not
  2 - The scenario could not be loaded`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := harness.LoadScenario(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load scenario", err)
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				result, err := harness.New(e.engine, e.logger).Apply(ctx, scenario)
				if err != nil {
					return err
				}
				if err := e.out.Render(result, func(w io.Writer) {
					for _, ev := range result.Trace {
						fmt.Fprintf(w, "%-12s %-10s %s %s\n", ev.Op, ev.Target, ev.ID, ev.Outcome)
					}
					for _, msg := range result.Errors {
						fmt.Fprintf(w, "✗ %s\n", msg)
					}
				}); err != nil {
					return err
				}
				if !result.Pass {
					return NewExitError(ExitFailure, fmt.Sprintf("%d step(s) did not meet expectations", len(result.Errors)))
				}
				return nil
			})
		},
	}
}
