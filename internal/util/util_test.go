package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteGeneratedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gen", "out.c")

	require.NoError(t, WriteGeneratedFile(path, "int x;"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "int x;\n", string(data), "trailing newline is normalized")

	require.NoError(t, WriteGeneratedFile(path, "int y;\n\n\n"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "int y;\n", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSourceDigest(t *testing.T) {
	assert.Equal(t, "a9993e364706816aba3e25717850c26c9cd0d89d", SourceDigest([]byte("abc")))
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", SourceDigest(nil))

	// CRLF and LF checkouts of the same source digest identically.
	assert.Equal(t,
		SourceDigest([]byte("class A {}\nclass B {}\n")),
		SourceDigest([]byte("class A {}\r\nclass B {}\r\n")))
}

func TestDiffGeneratedPlain(t *testing.T) {
	diff := DiffGenerated("a\nb\n", "a\nc\n", "x.c", 3, false)
	assert.Contains(t, diff, "-b")
	assert.Contains(t, diff, "+c")
	assert.Contains(t, diff, "x.c")
	assert.Contains(t, diff, "(regenerated)")
	assert.NotContains(t, diff, "\x1b[")
}

func TestDiffGeneratedColored(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	diff := DiffGenerated("a\n", "b\n", "x.c", 1, true)
	assert.Contains(t, diff, "\x1b[31m")
	assert.Contains(t, diff, "\x1b[32m")
}

func TestDiffGeneratedIdenticalInputs(t *testing.T) {
	assert.Empty(t, DiffGenerated("same\n", "same\n", "x.c", 3, false))
}
