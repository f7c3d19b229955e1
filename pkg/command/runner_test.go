package command

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Execute(t *testing.T) {
	reg, rec := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "work")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		`" tabkeeper session: vim: set ft=tabkeeper:`,
		"",
		"tabopen https://a.example/",
		"   ",
		":t https://b.example/",
		`  " indented comment`,
		"tabopen https://c.example/",
	}, "\n")), 0644))

	require.NoError(t, NewRunner(reg).Execute(context.Background(), path))

	require.Len(t, rec.calls, 3)
	assert.Equal(t, "https://a.example/", rec.calls[0].Raw)
	assert.Equal(t, "https://b.example/", rec.calls[1].Raw)
	assert.Equal(t, "https://c.example/", rec.calls[2].Raw)
}

func TestRunner_StopsAtFirstError(t *testing.T) {
	reg, rec := newTestRegistry(t)
	script := "tabopen https://a.example/\nbogus line\ntabopen https://b.example/\n"

	err := NewRunner(reg).Run(context.Background(), "work", strings.NewReader(script))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotEditorCommand))
	assert.True(t, strings.HasPrefix(err.Error(), "work:2: "), err.Error())
	assert.Len(t, rec.calls, 1)
}

func TestRunner_MissingFile(t *testing.T) {
	reg, _ := newTestRegistry(t)

	err := NewRunner(reg).Execute(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunner_CancelledContext(t *testing.T) {
	reg, rec := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewRunner(reg).Run(ctx, "work", strings.NewReader("tabopen https://a.example/\n"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, rec.calls)
}
