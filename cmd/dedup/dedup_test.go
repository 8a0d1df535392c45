package dedup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neongoby/neongoby/pkg/shared/errors"
)

func TestDedupCommand(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "pts-1")
	second := filepath.Join(dir, "pts-2")
	require.NoError(t, os.WriteFile(first, []byte("Missing alias:\n[5] %a = alloca i32\n[5] %a = alloca i32\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("Missing alias: (deref)\n[5] %a = alloca i32\n[5] %a = alloca i32\n"), 0644))

	var out bytes.Buffer
	DedupCmd.SetOut(&out)
	DedupCmd.SetArgs([]string{first, second})
	require.NoError(t, DedupCmd.Execute())

	assert.Equal(t, "Missing alias:\n[5] %a = alloca i32\n[5] %a = alloca i32\nTotal missing alias pairs: 1\n", out.String())
}

func TestDedupCommandTruncatedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pts-1")
	require.NoError(t, os.WriteFile(path, []byte("Missing alias:\n"), 0644))

	DedupCmd.SetOut(&bytes.Buffer{})
	DedupCmd.SetArgs([]string{path})
	err := DedupCmd.Execute()
	assert.Equal(t, errors.ExitToolFailure, errors.ExitCodeFor(err))
	assert.Contains(t, err.Error(), "unexpected end of file")
}
