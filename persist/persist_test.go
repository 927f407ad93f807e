package persist

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AnatoleLucet/rx"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const path = "/conf/app.json"

type settings struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// countingFs counts the files replaced through Rename, one per save.
type countingFs struct {
	afero.Fs

	mu    sync.Mutex
	saves int
}

func (fs *countingFs) Rename(oldname, newname string) error {
	fs.mu.Lock()
	fs.saves++
	fs.mu.Unlock()
	return fs.Fs.Rename(oldname, newname)
}

func (fs *countingFs) Saves() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.saves
}

func read(t *testing.T, fs afero.Fs) settings {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	var s settings
	require.NoError(t, json.Unmarshal(data, &s))
	return s
}

func TestBind(t *testing.T) {
	t.Run("loads existing state", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, path, []byte(`{
			// written by hand
			"name": "saved",
			"count": 2,
		}`), 0o644))

		sched := rx.NewVirtualScheduler(time.Unix(0, 0))
		v := rx.EmptyVariable[settings]()

		d, err := Bind(fs, path, v, WithScheduler(sched))
		require.NoError(t, err)
		defer d.Dispose()

		assert.Equal(t, settings{Name: "saved", Count: 2}, v.Get())
		assert.Equal(t, 0, sched.Pending())
	})

	t.Run("saves once per burst", func(t *testing.T) {
		fs := &countingFs{Fs: afero.NewMemMapFs()}
		sched := rx.NewVirtualScheduler(time.Unix(0, 0))
		v := rx.VariableOf(settings{Name: "app"})

		d, err := Bind(fs, path, v, WithDelay(100*time.Millisecond), WithScheduler(sched))
		require.NoError(t, err)
		defer d.Dispose()

		for i := 0; i < 5; i++ {
			v.Update(func(s settings) settings {
				s.Count++
				return s
			})
			sched.Advance(10 * time.Millisecond)
		}
		assert.Equal(t, 0, fs.Saves())

		sched.Advance(100 * time.Millisecond)
		assert.Equal(t, 1, fs.Saves())
		assert.Equal(t, settings{Name: "app", Count: 5}, read(t, fs))

		exists, err := afero.Exists(fs, path+".tmp")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("fixing the variable flushes the last change", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		sched := rx.NewVirtualScheduler(time.Unix(0, 0))
		v := rx.VariableOf(settings{})

		d, err := Bind(fs, path, v, WithScheduler(sched))
		require.NoError(t, err)
		defer d.Dispose()

		v.Let(settings{Name: "final"})

		assert.Equal(t, settings{Name: "final"}, read(t, fs))
	})

	t.Run("dispose drops the pending save", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		sched := rx.NewVirtualScheduler(time.Unix(0, 0))
		v := rx.VariableOf(settings{})

		d, err := Bind(fs, path, v, WithScheduler(sched))
		require.NoError(t, err)

		v.Set(settings{Name: "unsaved"})
		d.Dispose()
		sched.Advance(time.Minute)

		exists, err := afero.Exists(fs, path)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.Equal(t, 0, v.Observed())
	})

	t.Run("indent", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, Save(fs, path, settings{Name: "pretty"}, WithIndent("  ")))

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "{\n  \"name\""))
	})

	t.Run("broken file fails the binding", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, path, []byte(`{"name":`), 0o644))

		_, err := Bind(fs, path, rx.EmptyVariable[settings]())

		assert.ErrorContains(t, err, "persist: decode")
	})

	t.Run("save failures are logged", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		prev := rx.Logger()
		rx.SetLogger(zap.New(core))
		t.Cleanup(func() { rx.SetLogger(prev) })

		fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
		sched := rx.NewVirtualScheduler(time.Unix(0, 0))
		v := rx.VariableOf(settings{})

		d, err := Bind(fs, path, v, WithScheduler(sched))
		require.NoError(t, err)
		defer d.Dispose()

		v.Set(settings{Name: "lost"})
		sched.Advance(DefaultDelay)

		assert.Equal(t, 1, logs.FilterMessage("persist: save failed").Len())
		assert.Equal(t, 1, v.Observed())
	})
}
