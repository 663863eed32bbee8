package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/ir"
)

// FlowResult is the payload of flow and disclose.
type FlowResult struct {
	Dest    string            `json:"dest"`
	Source  string            `json:"source"`
	Type    ir.DependencyType `json:"type"`
	Outcome ir.Outcome        `json:"outcome"`
}

// NewFlowCommand creates the flow command.
func NewFlowCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		control bool
		subtype string
	)

	cmd := &cobra.Command{
		Use:   "flow <dest-id> <source-id[@version]>",
		Short: "Record that dest's current version depends on source",
		Long: `Record a data (default) or control dependency.

The destination resolves to its current version. The source resolves to
its current version unless one is given explicitly. Recording an identical
dependency twice reports duplicate_ignored.

Example:
  lineage flow <clean-id> <raw-id> --subtype input
  lineage flow <clean-id> <job-id>@0 --control --subtype op`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := parseID(args[0])
			if err != nil {
				return err
			}
			source, err := parseObjectVersion(args[1])
			if err != nil {
				return err
			}
			t, err := flowType(control, subtype)
			if err != nil {
				return err
			}

			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				var outcome ir.Outcome
				switch {
				case control && source.Version.IsAll():
					outcome, err = e.engine.ControlFlow(ctx, dest, source.ID, t)
				case control:
					outcome, err = e.engine.ControlFlowExt(ctx, dest, source, t)
				case source.Version.IsAll():
					outcome, err = e.engine.DataFlow(ctx, dest, source.ID, t)
				default:
					outcome, err = e.engine.DataFlowExt(ctx, dest, source, t)
				}
				if err != nil {
					return err
				}
				res := FlowResult{Dest: dest.String(), Source: args[1], Type: t, Outcome: outcome}
				return e.out.Render(res, func(w io.Writer) {
					fmt.Fprintf(w, "%s <- %s (%s): %s\n", res.Dest, res.Source, t, outcome)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&control, "control", false, "record a control dependency instead of data")
	cmd.Flags().StringVar(&subtype, "subtype", "generic", "dependency subtype (data: input, ipc, translation, copy; control: op, start)")
	return cmd
}

// NewDiscloseCommand creates the disclose command.
func NewDiscloseCommand(rootOpts *RootOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "disclose <dest-id@version> <source-id@version>",
		Short: "Record a dependency between two explicit object-versions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := parseExactVersion(args[0])
			if err != nil {
				return err
			}
			source, err := parseExactVersion(args[1])
			if err != nil {
				return err
			}
			t, err := ir.ParseDependencyType(typeName)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid dependency type", err)
			}

			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				outcome, err := e.engine.AddEdge(ctx, dest, source, t)
				if err != nil {
					return err
				}
				res := FlowResult{Dest: dest.String(), Source: source.String(), Type: t, Outcome: outcome}
				return e.out.Render(res, func(w io.Writer) {
					fmt.Fprintf(w, "%s <- %s (%s): %s\n", res.Dest, res.Source, t, outcome)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "data", `dependency type, e.g. "data input" or control-op`)
	return cmd
}

// NewHasAncestorCommand creates the has-ancestor command.
func NewHasAncestorCommand(rootOpts *RootOptions) *cobra.Command {
	var maxVersion int

	cmd := &cobra.Command{
		Use:   "has-ancestor <id[@version]> <ancestor-id>",
		Short: "Check for a recorded dependency on some version of ancestor",
		Long: `Check whether a recorded dependency leads from an object-version directly
to a version of ancestor. Without @version every version of the object is
considered. The implicit version chain is not a recorded dependency.

Exit codes:
  0 - A dependency exists
  1 - None exists`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseObjectVersion(args[0])
			if err != nil {
				return err
			}
			ancestor, err := parseID(args[1])
			if err != nil {
				return err
			}

			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				found, err := e.engine.HasImmediateAncestor(ctx, query, ancestor, ir.Version(maxVersion))
				if err != nil {
					return err
				}
				if err := e.out.Render(map[string]bool{"found": found}, func(w io.Writer) {
					fmt.Fprintln(w, found)
				}); err != nil {
					return err
				}
				if !found {
					return NewExitError(ExitFailure, "no recorded dependency")
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxVersion, "max-version", -1, "only consider ancestor versions up to this one (-1 for any)")
	return cmd
}

// flowType resolves the --control and --subtype flags of flow.
func flowType(control bool, subtype string) (ir.DependencyType, error) {
	var (
		t   ir.DependencyType
		err error
	)
	if control {
		t, err = ir.ControlSubtype(subtype)
	} else {
		t, err = ir.DataSubtype(subtype)
	}
	if err != nil {
		return 0, WrapExitError(ExitCommandError, "invalid subtype", err)
	}
	return t, nil
}
