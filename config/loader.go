package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// decodeHook lets viper decode "1h2m3s"-style strings and plain file-typed
// duration values straight into duration.Duration fields via its
// MarshalText/UnmarshalText pair, and never silently round-trips one
// format into another across file types (TOML/YAML/JSON all represent it
// as a string).
func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
}

// New builds a viper instance bound to path (TOML/YAML/JSON sniffed from
// the extension, viper's own job) and layered over Default()'s values so a
// partial config file only overrides what it names.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("start_servers", def.StartServers)
	v.SetDefault("min_spare_threads", def.MinSpareThreads)
	v.SetDefault("max_spare_threads", def.MaxSpareThreads)
	v.SetDefault("max_servers", def.MaxServers)
	v.SetDefault("threads_per_child", def.ThreadsPerChild)
	v.SetDefault("max_requests_per_child", def.MaxRequestsPerChild)
	v.SetDefault("pid_file", def.PIDFile)
	v.SetDefault("accept_mutex_scheme", def.AcceptMutexScheme)
	v.SetDefault("accept_mutex_name", def.AcceptMutexName)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_stdout", def.LogStdout)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, CodeReadConfig.Error(err)
		}
	}
	return v, nil
}

// Load decodes v into a Config, validating the result.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg, decodeHook()); err != nil {
		return nil, CodeDecodeConfig.Error(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Watcher watches a config file's directory for writes (editors typically
// rename-over, which fsnotify sees as CREATE, not WRITE, on the target
// path — so both are treated as a reload trigger) and calls onChange with
// the freshly reloaded Config on every one.
type Watcher struct {
	w    *fsnotify.Watcher
	path string
	done chan struct{}
}

// Watch starts watching path's config file. onChange is called from a
// dedicated goroutine; Watch does not block.
func Watch(path string, onChange func(*Config, error)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, CodeWatchConfig.Error(err)
	}

	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, CodeWatchConfig.Error(err)
	}

	watcher := &Watcher{w: fw, path: path, done: make(chan struct{})}

	go func() {
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				v, err := New(path)
				if err != nil {
					onChange(nil, err)
					continue
				}
				cfg, err := Load(v)
				onChange(cfg, err)
			case <-watcher.done:
				return
			}
		}
	}()

	return watcher, nil
}

// Close stops the watch goroutine and releases the underlying inotify
// descriptor.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}
