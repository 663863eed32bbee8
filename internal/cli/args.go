package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/lineage/internal/ir"
)

// parseID parses an object id argument.
func parseID(arg string) (ir.ObjectID, error) {
	id, err := ir.ParseObjectID(arg)
	if err != nil {
		return ir.None, WrapExitError(ExitCommandError, "invalid object id", err)
	}
	return id, nil
}

// parseObjectVersion parses "hi:lo", "hi:lo@N" or "hi:lo@*". Without a
// version the result is ir.AllVersions.
func parseObjectVersion(arg string) (ir.ObjectVersion, error) {
	ov, err := ir.ParseObjectVersion(arg)
	if err != nil {
		return ir.ObjectVersion{}, WrapExitError(ExitCommandError, "invalid object-version", err)
	}
	return ov, nil
}

// parseExactVersion parses "hi:lo@N" and rejects a missing or "*" version.
func parseExactVersion(arg string) (ir.ObjectVersion, error) {
	ov, err := parseObjectVersion(arg)
	if err != nil {
		return ir.ObjectVersion{}, err
	}
	if ov.Version.IsAll() {
		return ir.ObjectVersion{}, NewExitError(ExitCommandError, fmt.Sprintf("%q needs an explicit version (id@N)", arg))
	}
	return ov, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// printObject writes the text form of an identity record.
func printObject(w io.Writer, obj ir.Object) {
	fmt.Fprintf(w, "id:        %s\n", obj.ID)
	fmt.Fprintf(w, "key:       %s\n", obj.Key)
	if obj.Container != nil {
		fmt.Fprintf(w, "container: %s\n", obj.Container)
	}
	fmt.Fprintf(w, "session:   %s\n", obj.CreationSession)
	fmt.Fprintf(w, "created:   %s\n", formatTime(obj.CreationTime))
	if obj.Version >= 0 {
		fmt.Fprintf(w, "version:   %d\n", obj.Version)
	}
}

// printTable writes rows of tab-free columns padded to the widest cell.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	line := func(cells []string) {
		padded := make([]string, len(cells))
		for i, cell := range cells {
			padded[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(padded, "  "), " "))
	}
	line(header)
	for _, row := range rows {
		line(row)
	}
}
