package util

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

var (
	diffAdd  = color.New(color.FgGreen).SprintFunc()
	diffDel  = color.New(color.FgRed).SprintFunc()
	diffHunk = color.New(color.FgCyan).SprintFunc()
)

// WriteGeneratedFile writes an emitted translation unit atomically:
// the content lands in a temp file and replaces the target with a
// rename, so a crashed build never leaves a half-written .c behind.
// Parent directories are created and the content is normalized to end
// with exactly one newline.
func WriteGeneratedFile(path, content string) error {
	content = strings.TrimRight(content, "\n") + "\n"

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".gg-out-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	_, err = tmp.WriteString(content)
	if err == nil {
		err = tmp.Sync()
	}
	if err == nil {
		err = tmp.Chmod(0o644)
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// SourceDigest hashes source bytes for change detection in the build
// log. Line endings are normalized first so the digest is stable
// across checkouts.
func SourceDigest(src []byte) string {
	normalized := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	sum := sha1.Sum(normalized)
	return hex.EncodeToString(sum[:])
}

// DiffGenerated renders a unified diff between the previously emitted
// translation unit and the regenerated one. Identical inputs produce
// no output.
func DiffGenerated(previous, next, path string, context int, colorize bool) string {
	if previous == next {
		return ""
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(previous),
		B:        difflib.SplitLines(next),
		FromFile: path,
		ToFile:   path + " (regenerated)",
		Context:  context,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "(diff error: " + err.Error() + ")"
	}
	if !colorize {
		return text
	}

	var sb strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			sb.WriteString(diffAdd(line))
		case strings.HasPrefix(line, "-"):
			sb.WriteString(diffDel(line))
		case strings.HasPrefix(line, "@"):
			sb.WriteString(diffHunk(line))
		default:
			sb.WriteString(line)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
