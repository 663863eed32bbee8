package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/engine"
	"github.com/roach88/lineage/internal/ir"
)

// runCLI executes the root command and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun executes the root command against db and fails the test on error.
func mustRun(t *testing.T, db string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, append(args, "--db", db)...)
	require.NoError(t, err, "lineage %s", strings.Join(args, " "))
	return out
}

// decodeData unmarshals the data of a JSON CLIResponse into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func mustID(t *testing.T, out string) ir.ObjectID {
	t.Helper()
	id, err := ir.ParseObjectID(strings.TrimSpace(out))
	require.NoError(t, err)
	return id
}

func testDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "lineage.db")
}

func TestObjectCommands(t *testing.T) {
	db := testDB(t)

	id := mustID(t, mustRun(t, db, "object", "create", "fs", "/data/raw.csv", "file"))
	assert.Equal(t, id, mustID(t, mustRun(t, db, "object", "lookup", "fs", "/data/raw.csv", "file")))

	_, err := runCLI(t, "object", "lookup", "fs", "/data/none.csv", "file", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, engine.ErrNotFound)

	out := mustRun(t, db, "object", "lookup", "fs", "/data/none.csv", "file", "--create", "--format", "json")
	var created struct {
		ID      ir.ObjectID `json:"id"`
		Outcome string      `json:"outcome"`
	}
	decodeData(t, out, &created)
	assert.Equal(t, "object_created", created.Outcome)

	out = mustRun(t, db, "object", "info", id.String(), "--format", "json")
	var obj ir.Object
	decodeData(t, out, &obj)
	assert.Equal(t, id, obj.ID)
	assert.Equal(t, ir.ObjectKey{Originator: "fs", Name: "/data/raw.csv", Type: "file"}, obj.Key)
	assert.Equal(t, ir.Version(0), obj.Version)

	second := mustID(t, mustRun(t, db, "object", "create", "fs", "/data/raw.csv", "file", "--container", created.ID.String()+"@0"))
	out = mustRun(t, db, "object", "lookup-all", "fs", "/data/raw.csv", "file", "--format", "json")
	var stamps []ir.ObjectStamp
	decodeData(t, out, &stamps)
	require.Len(t, stamps, 2)
	assert.Equal(t, id, stamps[0].ID)
	assert.Equal(t, second, stamps[1].ID)

	out = mustRun(t, db, "object", "list")
	assert.Contains(t, out, "fs/file//data/raw.csv")
	assert.Contains(t, out, "fs/file//data/none.csv")
}

func TestObjectCommand_InvalidArguments(t *testing.T) {
	db := testDB(t)

	_, err := runCLI(t, "object", "create", "fs", "", "file", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "object", "info", "not-an-id", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "object", "create", "fs", "x", "file", "--container", "0:1", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "explicit version")
}

func TestVersionCommands(t *testing.T) {
	db := testDB(t)
	id := mustID(t, mustRun(t, db, "object", "create", "fs", "a", "file"))

	assert.Equal(t, "0\n", mustRun(t, db, "version", "get", id.String()))
	assert.Equal(t, "1\n", mustRun(t, db, "version", "new", id.String()))
	assert.Equal(t, "2\n", mustRun(t, db, "version", "new", id.String()))
	assert.Equal(t, "2\n", mustRun(t, db, "version", "get", id.String()))

	out := mustRun(t, db, "version", "info", id.String()+"@1", "--format", "json")
	var info struct {
		ID      ir.ObjectID `json:"id"`
		Version ir.Version  `json:"version"`
		Session ir.ObjectID `json:"session"`
	}
	decodeData(t, out, &info)
	assert.Equal(t, id, info.ID)
	assert.Equal(t, ir.Version(1), info.Version)
	assert.False(t, info.Session.IsNone())

	_, err := runCLI(t, "version", "info", id.String()+"@7", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestFlowAndAncestryCommands(t *testing.T) {
	db := testDB(t)
	raw := mustID(t, mustRun(t, db, "object", "create", "fs", "raw", "file"))
	job := mustID(t, mustRun(t, db, "object", "create", "sched", "job", "process"))
	clean := mustID(t, mustRun(t, db, "object", "create", "fs", "clean", "file"))
	mustRun(t, db, "version", "new", clean.String())

	out := mustRun(t, db, "flow", job.String(), raw.String(), "--subtype", "input")
	assert.Contains(t, out, "(data input): ok")
	out = mustRun(t, db, "flow", job.String(), raw.String()+"@0", "--subtype", "input")
	assert.Contains(t, out, "duplicate_ignored")
	mustRun(t, db, "flow", clean.String(), job.String())
	mustRun(t, db, "flow", clean.String(), job.String(), "--control", "--subtype", "op")
	mustRun(t, db, "disclose", clean.String()+"@0", raw.String()+"@0", "--type", "data copy")

	_, err := runCLI(t, "flow", clean.String(), job.String(), "--subtype", "teleport", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out = mustRun(t, db, "ancestry", clean.String()+"@1", "--format", "json")
	var entries []engine.WalkEntry
	decodeData(t, out, &entries)
	require.Len(t, entries, 3)
	assert.Equal(t, ir.At(clean, 0), entries[0].Other)
	assert.Equal(t, ir.VersionPrev, entries[0].Type)
	assert.Equal(t, ir.At(job, 0), entries[1].Other)
	assert.Equal(t, ir.DataGeneric, entries[1].Type)
	assert.Equal(t, ir.ControlOp, entries[2].Type)

	out = mustRun(t, db, "ancestry", clean.String()+"@1", "--no-versions", "--no-control", "--format", "json")
	decodeData(t, out, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, ir.At(job, 0), entries[0].Other)

	out = mustRun(t, db, "ancestry", raw.String()+"@0", "--descendants", "--depth", "3", "--no-control", "--format", "json")
	decodeData(t, out, &entries)
	others := make([]string, 0, len(entries))
	for _, e := range entries {
		others = append(others, e.Other.String())
	}
	assert.Contains(t, others, ir.At(job, 0).String())
	assert.Contains(t, others, ir.At(clean, 0).String())
	assert.Contains(t, others, ir.At(clean, 1).String())

	out = mustRun(t, db, "ancestry", raw.String()+"@0")
	assert.Contains(t, out, "No entries.")

	_, err = runCLI(t, "ancestry", raw.String(), "--depth", "0", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	assert.Equal(t, "true\n", mustRun(t, db, "has-ancestor", clean.String(), job.String()))
	_, err = runCLI(t, "has-ancestor", clean.String()+"@0", job.String(), "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestPropertyCommands(t *testing.T) {
	db := testDB(t)
	a := mustID(t, mustRun(t, db, "object", "create", "fs", "a", "file"))
	mustRun(t, db, "version", "new", a.String())

	mustRun(t, db, "property", "add", a.String(), "owner", "etl")
	mustRun(t, db, "property", "add", a.String()+"@0", "owner", "ops")
	mustRun(t, db, "property", "add", a.String()+"@0", "stage", "raw")

	out := mustRun(t, db, "property", "get", a.String(), "--format", "json")
	var props []ir.Property
	decodeData(t, out, &props)
	require.Len(t, props, 3)
	assert.Equal(t, ir.At(a, 1), props[0].ObjectVersion)
	assert.Equal(t, "etl", props[0].Value)

	out = mustRun(t, db, "property", "get", a.String()+"@0", "--key", "owner", "--format", "json")
	decodeData(t, out, &props)
	require.Len(t, props, 1)
	assert.Equal(t, "ops", props[0].Value)

	assert.Equal(t, ir.At(a, 1).String()+"\n", mustRun(t, db, "property", "find", "owner", "etl"))

	_, err := runCLI(t, "property", "find", "owner", "nobody", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSessionCommand(t *testing.T) {
	db := testDB(t)

	out := mustRun(t, db, "session", "info", "--format", "json")
	var sess ir.Session
	decodeData(t, out, &sess)
	assert.False(t, sess.ID.IsNone())
	assert.Equal(t, defaultProgram, sess.Program)
	assert.Equal(t, ir.EngineVersion, sess.ProgramVersion)

	// A later invocation can read the earlier session back.
	out = mustRun(t, db, "session", "info", sess.ID.String(), "--format", "json")
	var again ir.Session
	decodeData(t, out, &again)
	assert.Equal(t, sess.ID, again.ID)
	assert.Equal(t, sess.PID, again.PID)
}

func TestImportCommand(t *testing.T) {
	db := testDB(t)
	scenario := filepath.Join("..", "harness", "testdata", "scenarios", "etl_pipeline.yaml")

	out := mustRun(t, db, "import", scenario)
	assert.Contains(t, out, "object_created")
	assert.NotContains(t, out, "✗")

	out = mustRun(t, db, "object", "lookup", "fs", "/data/clean.csv", "file")
	clean := mustID(t, out)
	assert.Equal(t, "1\n", mustRun(t, db, "version", "get", clean.String()))

	// A second import finds the objects and replays the steps; the
	// disclosures that were fresh the first time are now duplicates.
	_, err := runCLI(t, "import", scenario, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestConfigFlags(t *testing.T) {
	_, err := runCLI(t, "object", "list", "--backend", "carrier-pigeon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "object", "list", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "object", "list", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBadgerBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")
	out, err := runCLI(t, "object", "create", "fs", "a", "file", "--backend", "badger", "--db", dir)
	require.NoError(t, err)
	id := mustID(t, out)

	out, err = runCLI(t, "object", "lookup", "fs", "a", "file", "--backend", "badger", "--db", dir)
	require.NoError(t, err)
	assert.Equal(t, id, mustID(t, out))
}
