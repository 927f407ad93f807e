// Package persist keeps a Variable in sync with a JSON file: the file is
// loaded once when binding, then rewritten after every burst of changes.
package persist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/AnatoleLucet/rx"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
)

const DefaultDelay = 500 * time.Millisecond

type options struct {
	delay     time.Duration
	scheduler rx.Scheduler
	indent    string
	perm      os.FileMode
}

type Option func(*options)

// WithDelay sets how long the Variable must stay unchanged before it is saved.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// WithScheduler sets the scheduler timing the saves.
func WithScheduler(s rx.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithIndent pretty prints the file with indent.
func WithIndent(indent string) Option {
	return func(o *options) {
		o.indent = indent
	}
}

// WithPerm sets the permission of the written file.
func WithPerm(perm os.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// Bind loads path into v when the file exists, then saves v to path whenever
// it changed and stayed unchanged for the configured delay. Save failures are
// logged and do not stop the binding. Disposing the result stops it; a save
// still pending is dropped.
func Bind[V any](fs afero.Fs, path string, v *rx.Variable[V], opts ...Option) (rx.Disposable, error) {
	o := &options{delay: DefaultDelay, perm: 0o644}
	for _, opt := range opts {
		opt(o)
	}

	if err := Load(fs, path, v); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	log := rx.Logger().With(zap.String("path", path))

	changes := v.Observe()
	if o.scheduler != nil {
		changes = changes.On(o.scheduler)
	}

	return changes.Debounce(o.delay).SubscribeAll(func(value V) {
		if err := save(fs, path, value, o); err != nil {
			log.Error("persist: save failed", zap.Error(err))
			return
		}
		log.Debug("persist: saved")
	}, func(err error) {
		log.Error("persist: binding failed", zap.Error(err))
	}, nil), nil
}

// Load reads path into v. Comments and trailing commas are allowed.
func Load[V any](fs afero.Fs, path string, v *rx.Variable[V]) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return errors.Wrapf(err, "persist: read %s", path)
	}

	var value V
	if err := json.Unmarshal(jsonc.ToJSON(data), &value); err != nil {
		return errors.Wrapf(err, "persist: decode %s", path)
	}

	v.Set(value)
	return nil
}

// Save writes value to path, creating the parent directories.
func Save[V any](fs afero.Fs, path string, value V, opts ...Option) error {
	o := &options{perm: 0o644}
	for _, opt := range opts {
		opt(o)
	}
	return save(fs, path, value, o)
}

// save writes to a temporary file renamed over path, so readers never see a
// partial file.
func save[V any](fs afero.Fs, path string, value V, o *options) error {
	var data []byte
	var err error
	if o.indent != "" {
		data, err = json.MarshalIndent(value, "", o.indent)
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return errors.Wrapf(err, "persist: encode %s", path)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "persist: create dir for %s", path)
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, o.perm); err != nil {
		return errors.Wrapf(err, "persist: write %s", tmp)
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return errors.Wrapf(err, "persist: replace %s", path)
	}
	return nil
}
