package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockTabs is a testify mock of TabHost.
type mockTabs struct {
	mock.Mock
}

func (m *mockTabs) ListVisibleTabs(ctx context.Context) ([]Tab, error) {
	args := m.Called(ctx)
	tabs, _ := args.Get(0).([]Tab)
	return tabs, args.Error(1)
}

func (m *mockTabs) ActiveTab(ctx context.Context) (Tab, error) {
	args := m.Called(ctx)
	tab, _ := args.Get(0).(Tab)
	return tab, args.Error(1)
}

func (m *mockTabs) CloseAllExcept(ctx context.Context, keep Tab) error {
	return m.Called(ctx, keep).Error(0)
}

func (m *mockTabs) CloseTab(ctx context.Context, tab Tab) error {
	return m.Called(ctx, tab).Error(0)
}

// mockExecutor is a testify mock of Executor.
type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

// fakeWindow is an in-memory window whose tabs are opened by fakeRunner.
type fakeWindow struct {
	mu     sync.Mutex
	tabs   []Tab
	active int
	nextID int
	closed []string
}

func newFakeWindow(urls ...string) *fakeWindow {
	w := &fakeWindow{}
	for _, u := range urls {
		w.open(u)
	}
	return w
}

func (w *fakeWindow) open(url string) Tab {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	tab := Tab{ID: fmt.Sprintf("tab-%d", w.nextID), URL: url}
	w.tabs = append(w.tabs, tab)
	return tab
}

func (w *fakeWindow) urls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	urls := make([]string, 0, len(w.tabs))
	for _, t := range w.tabs {
		urls = append(urls, t.URL)
	}
	return urls
}

func (w *fakeWindow) ListVisibleTabs(ctx context.Context) ([]Tab, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Tab(nil), w.tabs...), nil
}

func (w *fakeWindow) ActiveTab(ctx context.Context) (Tab, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.tabs) == 0 {
		return Tab{}, errors.New("no tabs")
	}
	return w.tabs[w.active], nil
}

func (w *fakeWindow) CloseAllExcept(ctx context.Context, keep Tab) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.tabs[:0]
	for _, t := range w.tabs {
		if t.ID == keep.ID {
			kept = append(kept, t)
			continue
		}
		w.closed = append(w.closed, t.ID)
	}
	w.tabs = kept
	w.active = 0
	return nil
}

func (w *fakeWindow) CloseTab(ctx context.Context, tab Tab) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, t := range w.tabs {
		if t.ID == tab.ID {
			w.tabs = append(w.tabs[:i], w.tabs[i+1:]...)
			w.closed = append(w.closed, t.ID)
			w.active = 0
			return nil
		}
	}
	return fmt.Errorf("tab %s not open", tab.ID)
}

// fakeRunner replays open-tab directives into a fakeWindow.
type fakeRunner struct {
	window *fakeWindow
	paths  []string
}

func (r *fakeRunner) Execute(ctx context.Context, path string) error {
	r.paths = append(r.paths, path)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	script, err := Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for _, url := range script.URLs() {
		r.window.open(url)
	}
	return nil
}

// failingFS fails every write.
type failingFS struct {
	*OSFileSystem
	err error
}

func (f *failingFS) WriteFile(path string, data []byte, mode WriteMode) error {
	return f.err
}

type staticExporter []string

func (e staticExporter) ListSerializableCommands() []string { return e }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestStore(t *testing.T, tabs TabHost, exec Executor) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()
	store, err := NewStore(StoreConfig{
		Directory: dir,
		Tabs:      tabs,
		Executor:  exec,
		Environment: func() Env {
			return Env{WorkingDir: "/home/u/work", RuntimePath: "/home/u/.tabkeeper"}
		},
		Now:    fixedClock(time.UnixMilli(1700000000000)),
		Logger: &logger,
	})
	require.NoError(t, err)
	return store, dir
}

func isRoot() bool {
	return os.Geteuid() == 0
}

func newTestLogger() zerolog.Logger {
	return zerolog.Nop()
}
