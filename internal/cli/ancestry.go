package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/ir"
)

// AncestryOptions holds flags for the ancestry command.
type AncestryOptions struct {
	*RootOptions
	Descendants bool
	NoVersions  bool
	NoData      bool
	NoControl   bool
	Depth       int
}

// NewAncestryCommand creates the ancestry command.
func NewAncestryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AncestryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ancestry <id[@version]>",
		Short: "List the ancestors or descendants of an object-version",
		Long: `List the neighbors of an object-version in the provenance graph.

Without @version the result is the union over every version of the object.
Entries are grouped by version; the implicit previous/next version comes
first, followed by recorded dependencies in the order they were disclosed.

With --depth greater than 1 the graph is walked breadth-first and every
object-version is expanded at most once.

Example:
  lineage ancestry <id>@3
  lineage ancestry <id> --descendants --no-versions
  lineage ancestry <id>@1 --depth 5 --no-control`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := parseObjectVersion(args[0])
			if err != nil {
				return err
			}
			if opts.Depth < 1 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid depth %d: must be at least 1", opts.Depth))
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				return runAncestry(ctx, e, opts, query)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Descendants, "descendants", false, "follow dependencies towards descendants")
	cmd.Flags().BoolVar(&opts.NoVersions, "no-versions", false, "omit the implicit version chain")
	cmd.Flags().BoolVar(&opts.NoData, "no-data", false, "omit data dependencies")
	cmd.Flags().BoolVar(&opts.NoControl, "no-control", false, "omit control dependencies")
	cmd.Flags().IntVar(&opts.Depth, "depth", 1, "number of hops to follow")

	return cmd
}

func (o *AncestryOptions) direction() ir.Direction {
	if o.Descendants {
		return ir.Descendants
	}
	return ir.Ancestors
}

func (o *AncestryOptions) flags() ir.TraversalFlags {
	var f ir.TraversalFlags
	if o.NoVersions {
		f |= ir.NoPrevNextVersion
	}
	if o.NoData {
		f |= ir.NoDataDependencies
	}
	if o.NoControl {
		f |= ir.NoControlDependencies
	}
	return f
}

func runAncestry(ctx context.Context, e *env, opts *AncestryOptions, query ir.ObjectVersion) error {
	var (
		walked []engine.WalkEntry
		err    error
	)
	if opts.Depth == 1 {
		var entries []ir.AncestryEntry
		entries, err = e.engine.GetAncestry(ctx, query, opts.direction(), opts.flags())
		for _, entry := range entries {
			walked = append(walked, engine.WalkEntry{AncestryEntry: entry, Depth: 1})
		}
	} else {
		walked, err = e.engine.Walk(ctx, query, opts.direction(), opts.flags(), opts.Depth)
	}
	if err != nil {
		return err
	}
	if walked == nil {
		walked = []engine.WalkEntry{}
	}
	e.out.VerboseLog("%d entries", len(walked))

	return e.out.Render(walked, func(w io.Writer) {
		if len(walked) == 0 {
			fmt.Fprintln(w, "No entries.")
			return
		}
		rows := make([][]string, 0, len(walked))
		for _, entry := range walked {
			rows = append(rows, []string{
				fmt.Sprint(entry.Depth),
				entry.Query.String(),
				entry.Other.String(),
				entry.Type.String(),
			})
		}
		printTable(w, []string{"DEPTH", "QUERY", "OTHER", "TYPE"}, rows)
	})
}
