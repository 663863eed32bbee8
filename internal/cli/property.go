package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/ir"
)

// NewPropertyCommand creates the property command group.
func NewPropertyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "property",
		Short: "Annotate object-versions with key/value properties",
	}
	cmd.AddCommand(newPropertyAddCommand(rootOpts))
	cmd.AddCommand(newPropertyGetCommand(rootOpts))
	cmd.AddCommand(newPropertyFindCommand(rootOpts))
	return cmd
}

func newPropertyAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <id[@version]> <key> <value>",
		Short: "Append a property; without @version the current version is used",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := parseObjectVersion(args[0])
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				if ov.Version.IsAll() {
					v, err := e.engine.GetVersion(ctx, ov.ID)
					if err != nil {
						return err
					}
					ov.Version = v
				}
				if err := e.engine.AddProperty(ctx, ov, args[1], args[2]); err != nil {
					return err
				}
				p := ir.Property{ObjectVersion: ov, Key: args[1], Value: args[2]}
				return e.out.Render(p, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s=%s\n", ov, p.Key, p.Value)
				})
			})
		},
	}
}

func newPropertyGetCommand(rootOpts *RootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "get <id[@version]>",
		Short: "List properties in the order they were added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ov, err := parseObjectVersion(args[0])
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				props, err := e.engine.GetProperties(ctx, ov.ID, ov.Version, key)
				if err != nil {
					return err
				}
				return e.out.Render(props, func(w io.Writer) {
					rows := make([][]string, 0, len(props))
					for _, p := range props {
						rows = append(rows, []string{p.ObjectVersion.String(), p.Key, p.Value})
					}
					printTable(w, []string{"OBJECT", "KEY", "VALUE"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "only properties with this key")
	return cmd
}

func newPropertyFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <key> <value>",
		Short: "List object-versions carrying key=value",
		Long: `List object-versions carrying key=value, each once, in the order the
property was first added.

Exit codes:
  0 - At least one match
  1 - No match`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				matches, err := e.engine.LookupByProperty(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return e.out.Render(matches, func(w io.Writer) {
					for _, ov := range matches {
						fmt.Fprintln(w, ov)
					}
				})
			})
		},
	}
}
