package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewStoreRequiresCollaborators(t *testing.T) {
	_, err := NewStore(StoreConfig{Directory: t.TempDir(), Executor: &mockExecutor{}})
	assert.Error(t, err)

	_, err = NewStore(StoreConfig{Directory: t.TempDir(), Tabs: &mockTabs{}})
	assert.Error(t, err)
}

func TestSetDirectory(t *testing.T) {
	store, dir := newTestStore(t, &mockTabs{}, &mockExecutor{})

	t.Run("normalizes trailing separator", func(t *testing.T) {
		got, err := store.SetDirectory(dir + "///")
		require.NoError(t, err)
		assert.Equal(t, dir+"/", got)
		assert.Equal(t, dir+"/", store.Directory())
	})

	t.Run("creates missing directory", func(t *testing.T) {
		nested := filepath.Join(dir, "a", "b")

		got, err := store.SetDirectory(nested)
		require.NoError(t, err)
		assert.Equal(t, nested+"/", got)

		info, err := os.Stat(nested)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, DirectoryMode, info.Mode().Perm())
	})

	t.Run("rejects file", func(t *testing.T) {
		before := store.Directory()
		file := filepath.Join(dir, "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := store.SetDirectory(file)
		assert.True(t, errors.Is(err, ErrInvalidDirectory))
		assert.Equal(t, before, store.Directory())
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := store.SetDirectory("")
		assert.True(t, errors.Is(err, ErrInvalidDirectory))
	})

	t.Run("creation failure", func(t *testing.T) {
		file := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := store.SetDirectory(filepath.Join(file, "child"))
		assert.True(t, errors.Is(err, ErrDirectoryCreateFailed))
	})
}

func TestResolvePath(t *testing.T) {
	store, dir := newTestStore(t, &mockTabs{}, &mockExecutor{})
	_, err := store.SetDirectory(dir + "/ses")
	require.NoError(t, err)
	sesdir := dir + "/ses/"

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, sesdir+"work", store.ResolvePath("work"))
	assert.Equal(t, sesdir+"sub/work", store.ResolvePath("sub/work"))
	assert.Equal(t, "/tmp/x", store.ResolvePath("/tmp/x"))
	assert.Equal(t, filepath.Join(home, "x"), store.ResolvePath("~/x"))
	assert.Equal(t, sesdir+"1700000000000.session", store.ResolvePath(""))
}

func TestSave(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{
		{ID: "1", URL: "https://a.example/"},
		{ID: "2", URL: "about:blank"},
		{ID: "3", URL: "https://b.example/"},
	}, nil)
	store, dir := newTestStore(t, tabs, &mockExecutor{})

	path, err := store.Save(context.Background(), "work", false, NewOptions(OptCurDir, OptTabs))
	require.NoError(t, err)
	assert.Equal(t, dir+"/work", path)
	assert.Equal(t, path, store.CurrentFile())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\" "+Marker+"\ncd /home/u/work\ntabopen https://a.example/\ntabopen https://b.example/\n", string(data))
}

func TestSaveSesdirWritesSessionDirectory(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{}, nil)
	store, dir := newTestStore(t, tabs, &mockExecutor{})

	path, err := store.Save(context.Background(), "s", false, NewOptions(OptCurDir, OptSesDir))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\" "+Marker+"\ncd "+dir+"/\n", string(data))
}

func TestSaveTimestampName(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{URL: "https://a.example/"}}, nil)
	store, dir := newTestStore(t, tabs, &mockExecutor{})

	path, err := store.Save(context.Background(), "", false, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, dir+"/1700000000000.session", path)
	assert.FileExists(t, path)
}

func TestSaveWithoutOverwriteKeepsExistingFile(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{URL: "https://a.example/"}}, nil).Once()
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{URL: "https://b.example/"}}, nil)
	store, _ := newTestStore(t, tabs, &mockExecutor{})
	ctx := context.Background()

	path, err := store.Save(ctx, "work", false, NewOptions(OptTabs))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = store.Save(ctx, "work", false, NewOptions(OptTabs))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyExists))
	assert.Contains(t, err.Error(), "already exists")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveOverwrite(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{URL: "https://new.example/"}}, nil)
	store, dir := newTestStore(t, tabs, &mockExecutor{})
	path := dir + "/work"
	require.NoError(t, os.WriteFile(path, []byte("tabopen https://old.example/\n"), 0644))

	_, err := store.Save(context.Background(), "work", true, NewOptions(OptTabs))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\" "+Marker+"\ntabopen https://new.example/\n", string(data))
}

func TestSaveErrors(t *testing.T) {
	t.Run("target is directory", func(t *testing.T) {
		store, dir := newTestStore(t, &mockTabs{}, &mockExecutor{})
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

		_, err := store.Save(context.Background(), "sub", true, DefaultOptions())
		assert.True(t, errors.Is(err, ErrIsDirectory))
	})

	t.Run("tab host failure", func(t *testing.T) {
		tabs := &mockTabs{}
		tabs.On("ListVisibleTabs", mock.Anything).Return(nil, errors.New("browser gone"))
		store, dir := newTestStore(t, tabs, &mockExecutor{})

		_, err := store.Save(context.Background(), "work", false, DefaultOptions())
		var serr *Error
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, ErrCodeTabHost, serr.Code)
		assert.NoFileExists(t, dir+"/work")
	})

	t.Run("write failure", func(t *testing.T) {
		tabs := &mockTabs{}
		tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{}, nil)
		logger := newTestLogger()
		store, err := NewStore(StoreConfig{
			Directory: t.TempDir(),
			Tabs:      tabs,
			Executor:  &mockExecutor{},
			FS:        &failingFS{OSFileSystem: NewOSFileSystem(), err: errors.New("disk full")},
			Logger:    &logger,
		})
		require.NoError(t, err)

		_, err = store.Save(context.Background(), "work", false, DefaultOptions())
		assert.True(t, errors.Is(err, ErrWrite))
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, "", store.CurrentFile())
	})
}

func TestAppend(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ActiveTab", mock.Anything).Return(Tab{ID: "2", URL: "about:blank"}, nil)
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{
		{ID: "1", URL: "https://a.example/"},
		{ID: "2", URL: "chrome://help/"},
	}, nil)
	store, dir := newTestStore(t, tabs, &mockExecutor{})
	path := dir + "/work"
	require.NoError(t, os.WriteFile(path, []byte("tabopen https://x.example/"), 0644))
	ctx := context.Background()

	_, err := store.Append(ctx, "work", false, DefaultOptions())
	require.NoError(t, err)

	_, err = store.Append(ctx, "work", true, DefaultOptions())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tabopen https://x.example/\n"+
		"tabopen about:blank\n"+
		"tabopen https://a.example/\n"+
		"tabopen chrome://help/\n", string(data))
	assert.Equal(t, "", store.CurrentFile(), "append does not change the current session")
}

func TestAppendErrors(t *testing.T) {
	tabs := &mockTabs{}
	store, dir := newTestStore(t, tabs, &mockExecutor{})
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Append(ctx, "missing", false, DefaultOptions())
		assert.True(t, errors.Is(err, ErrNotFound))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
		tabs.AssertNotCalled(t, "ActiveTab", mock.Anything)
	})

	t.Run("empty argument", func(t *testing.T) {
		_, err := store.Append(ctx, "", false, DefaultOptions())
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("directory", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

		_, err := store.Append(ctx, "sub", false, DefaultOptions())
		assert.True(t, errors.Is(err, ErrIsDirectory))
	})

	t.Run("not writable", func(t *testing.T) {
		if isRoot() {
			t.Skip("permission bits are not enforced for root")
		}
		path := filepath.Join(dir, "ro")
		require.NoError(t, os.WriteFile(path, []byte("x\n"), 0444))

		_, err := store.Append(ctx, "ro", false, DefaultOptions())
		assert.True(t, errors.Is(err, ErrNotWritable))
	})
}

func TestAppendWriteFailureKeepsContent(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{ID: "1", URL: "https://a.example/"}}, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "work")
	original := []byte("tabopen https://x.example/\n")
	require.NoError(t, os.WriteFile(path, original, 0644))

	logger := newTestLogger()
	store, err := NewStore(StoreConfig{
		Directory: dir,
		Tabs:      tabs,
		Executor:  &mockExecutor{},
		FS:        &failingFS{OSFileSystem: NewOSFileSystem(), err: errors.New("disk full")},
		Logger:    &logger,
	})
	require.NoError(t, err)

	_, err = store.Append(context.Background(), "work", true, DefaultOptions())
	assert.True(t, errors.Is(err, ErrWrite))
	assert.Contains(t, err.Error(), "disk full")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestSaveOverwriteFailureKeepsContent(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{ID: "1", URL: "https://a.example/"}}, nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "work")
	original := []byte("tabopen https://x.example/\n")
	require.NoError(t, os.WriteFile(path, original, 0644))

	logger := newTestLogger()
	store, err := NewStore(StoreConfig{
		Directory: dir,
		Tabs:      tabs,
		Executor:  &mockExecutor{},
		FS:        &failingFS{OSFileSystem: NewOSFileSystem(), err: errors.New("disk full")},
		Logger:    &logger,
	})
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "work", true, DefaultOptions())
	assert.True(t, errors.Is(err, ErrWrite))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
	assert.Equal(t, "", store.CurrentFile())
}

func TestLoadOpensTabsWithoutReplacing(t *testing.T) {
	window := newFakeWindow("https://existing.example/")
	runner := &fakeRunner{window: window}
	store, dir := newTestStore(t, window, runner)
	path := dir + "/work"
	require.NoError(t, os.WriteFile(path, []byte("\" "+Marker+"\n"+
		"tabopen https://a.example/\n"+
		"tabopen https://b.example/\n"+
		"tabopen https://c.example/\n"), 0644))

	got, err := store.Load(context.Background(), "work", false)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, path, store.CurrentFile())

	assert.Equal(t, []string{
		"https://existing.example/",
		"https://a.example/",
		"https://b.example/",
		"https://c.example/",
	}, window.urls())
	assert.Empty(t, window.closed)
}

func TestLoadReplaceAll(t *testing.T) {
	window := newFakeWindow("https://one.example/", "https://two.example/", "https://three.example/")
	runner := &fakeRunner{window: window}
	store, dir := newTestStore(t, window, runner)
	require.NoError(t, os.WriteFile(dir+"/work", []byte("tabopen https://a.example/\ntabopen https://b.example/\n"), 0644))

	_, err := store.Load(context.Background(), "work", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example/", "https://b.example/"}, window.urls())
	assert.ElementsMatch(t, []string{"tab-1", "tab-2", "tab-3"}, window.closed)
}

func TestLoadReplaceAllKeepsPlaceholderForEmptySession(t *testing.T) {
	window := newFakeWindow("https://one.example/", "https://two.example/")
	runner := &fakeRunner{window: window}
	store, dir := newTestStore(t, window, runner)
	require.NoError(t, os.WriteFile(dir+"/empty", []byte("\" "+Marker+"\n"), 0644))

	_, err := store.Load(context.Background(), "empty", true)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://one.example/"}, window.urls())
}

func TestLoadExecutionFailureKeepsPlaceholder(t *testing.T) {
	placeholder := Tab{ID: "1", URL: "https://one.example/"}
	tabs := &mockTabs{}
	tabs.On("ActiveTab", mock.Anything).Return(placeholder, nil)
	tabs.On("CloseAllExcept", mock.Anything, placeholder).Return(nil)
	exec := &mockExecutor{}
	exec.On("Execute", mock.Anything, mock.Anything).Return(errors.New("work:2: unknown command"))
	store, dir := newTestStore(t, tabs, exec)
	require.NoError(t, os.WriteFile(dir+"/work", []byte("bogus\n"), 0644))

	_, err := store.Load(context.Background(), "work", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution))
	assert.Contains(t, err.Error(), "unknown command")
	assert.Equal(t, "", store.CurrentFile())

	tabs.AssertExpectations(t)
	tabs.AssertNotCalled(t, "CloseTab", mock.Anything, mock.Anything)
}

func TestLoadErrors(t *testing.T) {
	exec := &mockExecutor{}
	store, dir := newTestStore(t, &mockTabs{}, exec)
	ctx := context.Background()

	_, err := store.Load(ctx, "", false)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = store.Load(ctx, "missing", false)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	_, err = store.Load(ctx, "sub", false)
	assert.True(t, errors.Is(err, ErrIsDirectory))

	if !isRoot() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "wo"), []byte("x\n"), 0200))
		_, err = store.Load(ctx, "wo", false)
		assert.True(t, errors.Is(err, ErrNotReadable))
	}

	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

// nestedRunner replays "outer" by loading "inner" through the same store,
// the way a script containing a session load command would. Every other
// path is handed to next.
type nestedRunner struct {
	store *Store
	next  Executor
	calls int
}

func (r *nestedRunner) Execute(ctx context.Context, path string) error {
	r.calls++
	if filepath.Base(path) == "outer" {
		_, err := r.store.Load(ctx, "inner", false)
		return err
	}
	return r.next.Execute(ctx, path)
}

func TestLoadNestedDoesNotDeadlock(t *testing.T) {
	window := newFakeWindow("https://one.example/")
	runner := &nestedRunner{next: &fakeRunner{window: window}}
	store, dir := newTestStore(t, window, runner)
	runner.store = store
	require.NoError(t, os.WriteFile(dir+"/outer", []byte("sessionload inner\n"), 0644))
	require.NoError(t, os.WriteFile(dir+"/inner", []byte("tabopen https://a.example/\n"), 0644))

	_, err := store.Load(context.Background(), "outer", false)
	require.NoError(t, err)

	assert.Equal(t, 2, runner.calls)
	assert.Equal(t, []string{"https://one.example/", "https://a.example/"}, window.urls())
	assert.Equal(t, dir+"/outer", store.CurrentFile())
}

// selfLoader loads the file it is replaying.
type selfLoader struct {
	store *Store
	calls int
}

func (r *selfLoader) Execute(ctx context.Context, path string) error {
	r.calls++
	_, err := r.store.Load(ctx, path, false)
	return err
}

func TestLoadDepthGuard(t *testing.T) {
	runner := &selfLoader{}
	store, dir := newTestStore(t, &mockTabs{}, runner)
	runner.store = store
	require.NoError(t, os.WriteFile(dir+"/loop", []byte("sessionload loop\n"), 0644))

	_, err := store.Load(context.Background(), "loop", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecution))
	assert.Contains(t, err.Error(), "nested deeper than")
	assert.Equal(t, maxLoadDepth, runner.calls)
}

func TestStoreConcurrentSaves(t *testing.T) {
	tabs := &mockTabs{}
	tabs.On("ListVisibleTabs", mock.Anything).Return([]Tab{{URL: "https://a.example/"}}, nil)
	store, _ := newTestStore(t, tabs, &mockExecutor{})

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := store.Save(context.Background(), "race", false, DefaultOptions())
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 8; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, ErrAlreadyExists))
		}
	}
	assert.Equal(t, 1, succeeded)
}
