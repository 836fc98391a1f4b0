package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/attendo/app/attendance"
	"github.com/umputun/attendo/app/store"
)

func newTestTracker(t *testing.T) *attendance.Tracker {
	t.Helper()
	kv, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return attendance.NewTracker(store.NewSnapshot(kv))
}

func runScript(t *testing.T, tr Tracker, script string) string {
	t.Helper()
	out := bytes.Buffer{}
	sh := New(tr, strings.NewReader(script), &out)
	sh.ExportDir = t.TempDir()
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestShell_Scenario(t *testing.T) {
	tr := newTestTracker(t)
	out := runScript(t, tr, "add Math\npresent 1\nabsent 1\nundo\nundo\nlist\nquit\n")

	assert.Contains(t, out, "no subjects")
	assert.Contains(t, out, "added Math\n")
	assert.Contains(t, out, "Math: 1/1, 100.00%\n")
	assert.Contains(t, out, "Math: 1/2, 50.00%\n")
	assert.Contains(t, out, "undone\n")
	assert.Contains(t, out, "nothing to undo\n")
	assert.Contains(t, out, "Total Percentage: 100.00%\n")

	subjects := tr.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, 1, subjects[0].Present)
	assert.Equal(t, 1, subjects[0].Total)
}

func TestShell_AddPrompt(t *testing.T) {
	tr := newTestTracker(t)

	out := runScript(t, tr, "add\nPhysics Lab\nadd\n\n")
	assert.Contains(t, out, "subject name: added Physics Lab\n")
	assert.Contains(t, out, "cancelled\n")
	require.Len(t, tr.Subjects(), 1)
	assert.Equal(t, "Physics Lab", tr.Subjects()[0].Name)

	// end of input while prompting cancels too
	runScript(t, tr, "add")
	assert.Len(t, tr.Subjects(), 1)
}

func TestShell_DeleteConfirmation(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, tr.Add("a"))
	require.NoError(t, tr.Add("b"))

	out := runScript(t, tr, "delete 1\nn\n")
	assert.Contains(t, out, "delete a? [y/N]: cancelled\n")
	assert.Len(t, tr.Subjects(), 2)

	out = runScript(t, tr, "delete 1\nyes\n")
	assert.Contains(t, out, "deleted a\n")
	require.Len(t, tr.Subjects(), 1)
	assert.Equal(t, "b", tr.Subjects()[0].Name)
}

func TestShell_RemoveAll(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, tr.Add("a"))

	runScript(t, tr, "remove-all\nno\n")
	assert.Len(t, tr.Subjects(), 1)

	out := runScript(t, tr, "remove-all\ny\n")
	assert.Contains(t, out, "all subjects removed\n")
	assert.Empty(t, tr.Subjects())
}

func TestShell_AssumeYes(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, tr.Add("a"))
	require.NoError(t, tr.Add("b"))

	out := bytes.Buffer{}
	sh := New(tr, strings.NewReader(""), &out)
	sh.AssumeYes = true
	require.NoError(t, sh.Exec("delete 2"))
	assert.Equal(t, "deleted b\n", out.String())
	require.NoError(t, sh.Exec("remove-all"))
	assert.Empty(t, tr.Subjects())
}

func TestShell_Errors(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, tr.Add("a"))

	out := runScript(t, tr, "present 5\npresent x\nabsent\nblah\nexport docx\nlist\n")
	assert.Contains(t, out, "error: position 5 of 1: subject not found\n")
	assert.Contains(t, out, "error: bad subject number \"x\"\n")
	assert.Contains(t, out, "error: subject number expected\n")
	assert.Contains(t, out, "error: unknown command \"blah\", type help for the list\n")
	assert.Contains(t, out, "error: unsupported export format \"docx\"\n")
	assert.Equal(t, 0, tr.Subjects()[0].Total)
}

func TestShell_Export(t *testing.T) {
	tr := newTestTracker(t)
	require.NoError(t, tr.Add("Math"))

	out := bytes.Buffer{}
	sh := New(tr, strings.NewReader("export text\nexport\n"), &out)
	sh.ExportDir = t.TempDir()
	require.NoError(t, sh.Run(context.Background()))

	txt := filepath.Join(sh.ExportDir, "attendance_data.txt")
	assert.Contains(t, out.String(), "exported to "+txt)
	data, err := os.ReadFile(txt) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Math\n")

	pdf := filepath.Join(sh.ExportDir, "attendance_data.pdf")
	_, err = os.Stat(pdf)
	require.NoError(t, err)

	custom := filepath.Join(t.TempDir(), "out.yaml")
	runScript(t, tr, "export yaml "+custom)
	data, err = os.ReadFile(custom) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Math")
}

func TestShell_Help(t *testing.T) {
	out := runScript(t, newTestTracker(t), "help\n")
	assert.Contains(t, out, "remove-all              delete all subjects")
}

func TestShell_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sh := New(newTestTracker(t), strings.NewReader("add a\n"), &bytes.Buffer{})
	assert.ErrorIs(t, sh.Run(ctx), context.Canceled)
}

func TestPrintList(t *testing.T) {
	out := bytes.Buffer{}
	PrintList(&out, attendance.Summarize([]attendance.Subject{{Name: "Math", Present: 1, Total: 2}, {Name: "Art"}}))
	exp := `#  Subject  Total  Present  Absent  Percentage
1  Math     2      1        1       50.00%
2  Art      0      0        0       0.00%
Total Percentage: 25.00%
`
	assert.Equal(t, exp, out.String())
}
