package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/gglang/internal/config"
)

const program = `
class Program {
    static void main() {
        Console.writeLine("Hello, World!");
    }
}`

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuildWritesCNextToSource(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "app.gg", program)

	runner := NewRunner(&Config{NoColor: true})
	result, outPath, err := runner.Build(src)
	require.NoError(t, err)
	require.True(t, result.Ok())

	assert.Equal(t, filepath.Join(dir, "app.c"), outPath)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello, World!")
}

func TestBuildHonorsOutputFlag(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "app.gg", program)
	out := filepath.Join(dir, "custom.c")

	runner := NewRunner(&Config{Output: out, NoColor: true})
	_, outPath, err := runner.Build(src)
	require.NoError(t, err)
	assert.Equal(t, out, outPath)
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestBuildRejectsLibraryEntryPoint(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "math.lib.gg", program)

	runner := NewRunner(&Config{NoColor: true})
	_, _, err := runner.Build(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library file")
}

func TestBuildAppliesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, config.ProjectFileName),
		[]byte("memory_limit=1MB\n"), 0o644))
	src := writeSource(t, dir, "app.gg", program)

	runner := NewRunner(&Config{NoColor: true})
	result, _, err := runner.Build(src)
	require.NoError(t, err)
	require.True(t, result.Ok())
	assert.Contains(t, result.CSource, "gg_gc_set_memory_limit(1048576);")
}

func TestBuildDoesNotWriteOnErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "bad.gg", `
class Program {
    static void main() {
        int a = "teste";
    }
}`)

	runner := NewRunner(&Config{NoColor: true})
	result, outPath, err := runner.Build(src)
	require.NoError(t, err)
	assert.False(t, result.Ok())
	assert.Empty(t, outPath)
	_, err = os.Stat(filepath.Join(dir, "bad.c"))
	assert.True(t, os.IsNotExist(err))
}

func TestCheckWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ok.gg", program)
	writeSource(t, dir, "warn.gg", `
class Other {
    static void main() {
        Console.writeLine(mystery);
    }
}`)

	runner := NewRunner(&Config{NoColor: true, CheckOnly: true})
	errors, warnings, err := runner.Check(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 0, errors)
	assert.Equal(t, 1, warnings)

	// check never writes output files
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, ".c", filepath.Ext(entry.Name()))
	}
}

func TestCheckFailsWithoutSources(t *testing.T) {
	runner := NewRunner(&Config{NoColor: true})
	_, _, err := runner.Check(context.Background(), []string{t.TempDir()})
	assert.Error(t, err)
}

func TestProjectBuildLogEnablesRecording(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, config.ProjectFileName),
		[]byte("build_log=enabled\n"), 0o644))
	src := writeSource(t, dir, "app.gg", program)

	runner := NewRunner(&Config{NoColor: true})
	result, _, err := runner.Build(src)
	require.NoError(t, err)
	require.True(t, result.Ok())

	_, err = os.Stat(filepath.Join(dir, ".gg", "buildlog.db"))
	assert.NoError(t, err, "build_log=enabled records next to the project file")
}

func TestBuildRecordsToLog(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "app.gg", program)
	dsn := filepath.Join(dir, ".gg", "log.db")

	runner := NewRunner(&Config{NoColor: true, LogDSN: dsn})
	result, _, err := runner.Build(src)
	require.NoError(t, err)
	require.True(t, result.Ok())

	logRunner := NewRunner(&Config{NoColor: true, LogDSN: dsn})
	assert.NoError(t, logRunner.Log(5))
}
