package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Veraticus/rd-classifier/internal/classification"
	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harness runs rdc commands against a private config and data directory.
type harness struct {
	t     *testing.T
	dir   string
	stdin string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Cleanup(viper.Reset)
	return &harness{t: t, dir: dir}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	viper.Reset()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(h.stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

// rd03 returns a full-width RD03 sheet record.
func rd03(pea, concession, lineType string) testutil.Record {
	rec := make(testutil.Record, 20)
	copy(rec, testutil.Record{pea, "route", "tag", "owner", concession, lineType, 10, 12})
	rec[19] = "tester"
	return rec
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd()
	want := map[string][]string{
		"classify": nil,
		"profiles": {"list", "add", "duplicate", "rename", "delete", "use", "export", "import"},
		"rules":    {"list", "test", "export", "import"},
		"history":  nil,
		"serve":    nil,
		"migrate":  nil,
		"auth":     {"sheets"},
		"version":  nil,
	}
	for name, subs := range want {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		for _, sub := range subs {
			found := false
			for _, c := range cmd.Commands() {
				if c.Name() == sub {
					found = true
				}
			}
			assert.True(t, found, "%s %s", name, sub)
		}
	}
}

func TestClassifyFlags(t *testing.T) {
	cmd := classifyCmd()
	for _, name := range []string{"mode", "profile", "out", "concurrency", "sheets", "view", "no-history"} {
		assert.NotNil(t, cmd.Flag(name), name)
	}
	assert.Error(t, cobra.MinimumNArgs(1)(cmd, nil))
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("version"), "rdc dev")
}

func TestConfigFile(t *testing.T) {
	h := newHarness(t)
	storePath := filepath.Join(h.dir, "shared.yaml")
	cfg := filepath.Join(h.dir, "rdc.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store:\n  driver: file\n  path: "+storePath+"\n"), 0o600))

	h.mustRun("--config", cfg, "profiles", "add", "Shared")
	data, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Shared")

	_, err = h.run("--config", filepath.Join(h.dir, "missing.yaml"), "version")
	assert.Error(t, err)
}

func TestEnvSelectsStore(t *testing.T) {
	h := newHarness(t)
	t.Setenv("RDC_STORE_DRIVER", "file")
	t.Setenv("RDC_STORE_PATH", filepath.Join(h.dir, "rules.json"))

	h.mustRun("profiles", "add", "From env")
	assert.FileExists(t, filepath.Join(h.dir, "rules.json"))

	_, err := h.run("history")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	t.Setenv("RDC_STORE_DRIVER", "carrier-pigeon")
	_, err = h.run("profiles", "list")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestProfilesLifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("profiles", "list")
	assert.Contains(t, out, model.DefaultProfileID)

	out = h.mustRun("profiles", "add", "North")
	assert.Contains(t, out, `Created profile "North"`)

	out = h.mustRun("profiles", "list")
	assert.Contains(t, out, "North")
	lines := strings.Split(out, "\n")
	var northID string
	for _, line := range lines {
		if strings.Contains(line, "North") {
			fields := strings.Fields(line)
			require.GreaterOrEqual(t, len(fields), 3)
			assert.Equal(t, "*", fields[0], "new profile is active")
			northID = fields[1]
		}
	}
	require.NotEmpty(t, northID)

	h.mustRun("profiles", "rename", northID, "North region")
	h.mustRun("profiles", "duplicate", northID, "North copy")
	h.mustRun("profiles", "use", model.DefaultProfileID)
	assert.Contains(t, h.mustRun("profiles", "list"), "North region")

	h.stdin = "n\n"
	out = h.mustRun("profiles", "delete", northID)
	assert.Contains(t, out, "Cancelled")
	assert.Contains(t, h.mustRun("profiles", "list"), "North region")

	h.stdin = "yes\n"
	h.mustRun("profiles", "delete", northID)
	assert.NotContains(t, h.mustRun("profiles", "list"), "North region")

	_, err := h.run("profiles", "delete", "--yes", model.DefaultProfileID)
	assert.ErrorIs(t, err, common.ErrProfileProtected)

	_, err = h.run("profiles", "use", "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProfilesExportImport(t *testing.T) {
	h := newHarness(t)
	h.mustRun("profiles", "add", "Backed up")

	backup := filepath.Join(h.dir, "backup.json")
	h.mustRun("profiles", "export", "--out", backup)

	other := newHarness(t)
	other.stdin = "n\n"
	assert.Contains(t, other.mustRun("profiles", "import", backup), "Cancelled")
	assert.NotContains(t, other.mustRun("profiles", "list"), "Backed up")

	out := other.mustRun("profiles", "import", "--yes", backup)
	assert.Contains(t, out, "Restored 2 profiles")
	assert.Contains(t, other.mustRun("profiles", "list"), "Backed up")

	legacy := filepath.Join(h.dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{"rd03Rules": [], "rd05Rules": []}`), 0o600))
	out = other.mustRun("profiles", "import", "--name", "Old rules", legacy)
	assert.Contains(t, out, "Imported rules as profile")
	assert.Contains(t, other.mustRun("profiles", "list"), "Old rules")

	junk := filepath.Join(h.dir, "junk.json")
	require.NoError(t, os.WriteFile(junk, []byte(`{"hello": "world"}`), 0o600))
	_, err := other.run("profiles", "import", junk)
	assert.ErrorIs(t, err, common.ErrInvalidBackup)
}

func TestClassify(t *testing.T) {
	h := newHarness(t)
	src := testutil.NewWorkbook(t).
		WithRecords(
			rd03("PEA-1", "-", classification.LineFiberFig8),
			rd03("PEA-2", "somebody", "Aerial"),
		).
		Save("north.xlsx")
	outDir := filepath.Join(h.dir, "out")

	out := h.mustRun("classify", "--mode", "RD03", "--out", outDir, src)
	assert.Contains(t, out, "4.1.1")
	assert.Contains(t, out, model.NotFound)
	assert.FileExists(t, filepath.Join(outDir, "Processed_RD03_north.xlsx"))

	out = h.mustRun("history")
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "RD03")

	h.mustRun("classify", "--no-history", "--out", outDir, src)
	out = h.mustRun("history", "--limit", "10")
	assert.Equal(t, 1, strings.Count(out, "north"), "second run was not recorded")
}

func TestClassify_PartialFailure(t *testing.T) {
	h := newHarness(t)
	good := testutil.NewWorkbook(t).WithRecords(rd03("PEA-1", "-", "Aerial")).Save("good.xlsx")
	bad := filepath.Join(h.dir, "missing.xlsx")
	outDir := filepath.Join(h.dir, "out")

	_, err := h.run("classify", "--out", outDir, "--concurrency", "2", good, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnreadableSource)
	assert.Contains(t, err.Error(), "missing.xlsx")
	assert.FileExists(t, filepath.Join(outDir, "Processed_RD03_good.xlsx"))
	assert.NoFileExists(t, filepath.Join(outDir, "Processed_RD03_missing.xlsx"))
}

func TestClassify_Errors(t *testing.T) {
	h := newHarness(t)
	src := testutil.NewWorkbook(t).WithRecords(rd03("PEA-1", "-", "Aerial")).Save("north.xlsx")

	_, err := h.run("classify", "--mode", "RD07", src)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = h.run("classify", "--profile", "nope", src)
	assert.ErrorIs(t, err, common.ErrNotFound)

	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")
	_, err = h.run("classify", "--sheets", src)
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("migrate"), "version 3 of 3")

	t.Setenv("RDC_STORE_DRIVER", "file")
	t.Setenv("RDC_STORE_PATH", filepath.Join(h.dir, "rules.yaml"))
	assert.Contains(t, h.mustRun("migrate"), "no schema")
}

func TestServe_RejectsRemoteStore(t *testing.T) {
	h := newHarness(t)
	t.Setenv("RDC_STORE_DRIVER", "remote")
	t.Setenv("RDC_STORE_URL", "http://127.0.0.1:1")

	_, err := h.run("serve")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestAuthSheets_MissingCredentials(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("auth", "sheets")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
