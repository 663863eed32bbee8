package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/lineage/internal/ir"
)

// NewSessionCommand creates the session command group.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the sessions that disclosed provenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info [id]",
		Short: "Show a session; without an id, the session of this invocation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id ir.ObjectID
			if len(args) == 1 {
				parsed, err := parseID(args[0])
				if err != nil {
					return err
				}
				id = parsed
			}
			return withEnv(rootOpts, cmd, func(ctx context.Context, e *env) error {
				if id.IsNone() {
					id = e.engine.Session().ID
				}
				sess, err := e.engine.GetSessionInfo(ctx, id)
				if err != nil {
					return err
				}
				return e.out.Render(sess, func(w io.Writer) { printSession(w, sess) })
			})
		},
	})
	return cmd
}

func printSession(w io.Writer, s ir.Session) {
	fmt.Fprintf(w, "id:         %s\n", s.ID)
	if s.Originator != "" {
		fmt.Fprintf(w, "originator: %s\n", s.Originator)
	}
	fmt.Fprintf(w, "program:    %s %s\n", s.Program, s.ProgramVersion)
	fmt.Fprintf(w, "user:       %s\n", s.User)
	fmt.Fprintf(w, "pid:        %d\n", s.PID)
	if s.MACAddress != "" {
		fmt.Fprintf(w, "mac:        %s\n", s.MACAddress)
	}
	if s.CommandLine != "" {
		fmt.Fprintf(w, "command:    %s\n", s.CommandLine)
	}
	fmt.Fprintf(w, "started:    %s\n", formatTime(s.StartTime))
}
