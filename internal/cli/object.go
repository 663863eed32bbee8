package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/ir"
)

// ObjectResult is the payload of object create and lookup.
type ObjectResult struct {
	ID      ir.ObjectID `json:"id"`
	Outcome ir.Outcome  `json:"outcome"`
}

// NewObjectCommand creates the object command group.
func NewObjectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Register and look up objects",
	}
	cmd.AddCommand(newObjectCreateCommand(rootOpts))
	cmd.AddCommand(newObjectLookupCommand(rootOpts))
	cmd.AddCommand(newObjectLookupAllCommand(rootOpts))
	cmd.AddCommand(newObjectInfoCommand(rootOpts))
	cmd.AddCommand(newObjectListCommand(rootOpts))
	cmd.AddCommand(newObjectFileCommand(rootOpts))
	return cmd
}

func newObjectCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var container string

	cmd := &cobra.Command{
		Use:   "create <originator> <name> <type>",
		Short: "Create a new object",
		Long: `Create a new object at version 0.

A key may be registered more than once; lookups return the newest object.

Example:
  lineage object create fs /data/raw.csv file
  lineage object create fs /data/raw.csv file --container 0000000000007e57:0000000000000002@0`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := optionalContainer(container)
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				id, err := e.engine.CreateObject(ctx, args[0], args[1], args[2], c)
				if err != nil {
					return err
				}
				return e.out.Render(ObjectResult{ID: id, Outcome: ir.OutcomeObjectCreated}, func(w io.Writer) {
					fmt.Fprintln(w, id)
				})
			})
		},
	}
	cmd.Flags().StringVar(&container, "container", "", "containing object-version (id@N)")
	return cmd
}

func newObjectLookupCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		create    bool
		container string
	)

	cmd := &cobra.Command{
		Use:   "lookup <originator> <name> <type>",
		Short: "Look up the newest object with a key",
		Long: `Look up the newest object registered under a key.

With --create a missing object is created; concurrent callers for the
same key receive the same id.

Exit codes:
  0 - Object found (or created)
  1 - No object has the key`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := optionalContainer(container)
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				var (
					id      ir.ObjectID
					outcome = ir.OutcomeOK
				)
				if create {
					id, outcome, err = e.engine.LookupOrCreateObject(ctx, args[0], args[1], args[2], c)
				} else {
					id, err = e.engine.LookupObject(ctx, args[0], args[1], args[2])
				}
				if err != nil {
					return err
				}
				return e.out.Render(ObjectResult{ID: id, Outcome: outcome}, func(w io.Writer) {
					fmt.Fprintln(w, id)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "create the object when none exists")
	cmd.Flags().StringVar(&container, "container", "", "containing object-version for a created object (id@N)")
	return cmd
}

func newObjectLookupAllCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup-all <originator> <name> <type>",
		Short: "List every object registered under a key, oldest first",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				stamps, err := e.engine.LookupAllObjects(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				return e.out.Render(stamps, func(w io.Writer) {
					rows := make([][]string, 0, len(stamps))
					for _, s := range stamps {
						rows = append(rows, []string{s.ID.String(), formatTime(s.CreationTime)})
					}
					printTable(w, []string{"ID", "CREATED"}, rows)
				})
			})
		},
	}
}

func newObjectInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show an object's identity record and current version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				obj, err := e.objectInfo(ctx, id)
				if err != nil {
					return err
				}
				return e.out.Render(obj, func(w io.Writer) { printObject(w, obj) })
			})
		},
	}
}

func newObjectListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every object, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				objs, err := e.engine.ListObjects(ctx)
				if err != nil {
					return err
				}
				return e.out.Render(objs, func(w io.Writer) {
					rows := make([][]string, 0, len(objs))
					for _, o := range objs {
						rows = append(rows, []string{o.ID.String(), fmt.Sprint(o.Version), o.Key.String()})
					}
					printTable(w, []string{"ID", "VERSION", "KEY"}, rows)
				})
			})
		},
	}
}

func newObjectFileCommand(rootOpts *RootOptions) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Resolve a filesystem path to its object",
		Long: `Resolve an existing file to the object keyed by its absolute path.

Modes:
  lookup             fail when the file has no object (default)
  create-if-missing  create an object when none is registered
  always-create      create a new object even if one is registered`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseFileMode(mode)
			if err != nil {
				return err
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				id, err := e.engine.LookupFile(ctx, args[0], m)
				if err != nil {
					return err
				}
				return e.out.Render(ObjectResult{ID: id, Outcome: ir.OutcomeOK}, func(w io.Writer) {
					fmt.Fprintln(w, id)
				})
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", engine.FileLookupOnly.String(), "lookup, create-if-missing or always-create")
	return cmd
}

// optionalContainer parses the --container flag; empty means no container.
func optionalContainer(arg string) (*ir.ObjectVersion, error) {
	if arg == "" {
		return nil, nil
	}
	ov, err := parseExactVersion(arg)
	if err != nil {
		return nil, err
	}
	return &ov, nil
}

func parseFileMode(s string) (engine.FileMode, error) {
	for _, m := range []engine.FileMode{engine.FileLookupOnly, engine.FileCreateIfMissing, engine.FileAlwaysCreate} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q: must be lookup, create-if-missing or always-create", s))
}
