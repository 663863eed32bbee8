package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/ir"
)

// VersionResult is the payload of version get and new.
type VersionResult struct {
	ID      ir.ObjectID `json:"id"`
	Version ir.Version  `json:"version"`
}

// NewVersionCommand creates the version command group.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Read and append object versions",
	}
	cmd.AddCommand(newVersionGetCommand(rootOpts))
	cmd.AddCommand(newVersionNewCommand(rootOpts))
	cmd.AddCommand(newVersionInfoCommand(rootOpts))
	return cmd
}

func newVersionGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print an object's current version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				v, err := e.engine.GetVersion(ctx, id)
				if err != nil {
					return err
				}
				return e.out.Render(VersionResult{ID: id, Version: v}, func(w io.Writer) {
					fmt.Fprintln(w, v)
				})
			})
		},
	}
}

func newVersionNewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new <id>",
		Short: "Append a version to an object and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				v, err := e.engine.NewVersion(ctx, id)
				if err != nil {
					return err
				}
				return e.out.Render(VersionResult{ID: id, Version: v}, func(w io.Writer) {
					fmt.Fprintln(w, v)
				})
			})
		},
	}
}

func newVersionInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <id@version>",
		Short: "Show the session and time that created a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := parseExactVersion(args[0])
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				info, err := e.engine.GetVersionInfo(ctx, ov)
				if err != nil {
					return err
				}
				return e.out.Render(info, func(w io.Writer) {
					fmt.Fprintf(w, "object:  %s\n", info.ObjectVersion)
					fmt.Fprintf(w, "session: %s\n", info.Session)
					fmt.Fprintf(w, "created: %s\n", formatTime(info.CreationTime))
				})
			})
		},
	}
}
