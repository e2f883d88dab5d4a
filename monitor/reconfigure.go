package monitor

import (
	"syscall"

	"github.com/hashicorp/go-multierror"

	"github.com/icap-oss/icapd/config"
	"github.com/icap-oss/icapd/registry"
)

// triggerReconfigure enqueues cfg for the main loop to act on. It never
// blocks: a reconfigure already pending coalesces with a newer one rather
// than queuing both, so a burst of SIGHUPs or fsnotify events collapses to
// a single reconfigure pass.
func (m *Monitor) triggerReconfigure(cfg *config.Config) {
	select {
	case <-m.reconfigureCh:
	default:
	}
	select {
	case m.reconfigureCh <- cfg:
	default:
	}
}

// WatchConfigFile wires path's fsnotify-driven reload (config.Watch) into
// the monitor's own reconfigure queue, so an edited config file acts
// exactly like a SIGHUP.
func (m *Monitor) WatchConfigFile(path string) (*config.Watcher, error) {
	return config.Watch(path, func(cfg *config.Config, err error) {
		if err != nil {
			m.log().WithError(err).Warn("config file reload failed")
			return
		}
		m.triggerReconfigure(cfg)
	})
}

// reconfigure marks every currently running child for graceful retirement
// (moved to the old_childs_queue, drained as they exit on their own),
// rebuilds the registry and listener set for cfg, and starts a fresh batch
// of StartServers children under the new configuration.
func (m *Monitor) reconfigure(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return CodeReconfigureFailed.Error(err)
	}

	m.mu.Lock()
	retiring := make([]*childProcess, 0, len(m.children))
	for _, c := range m.children {
		retiring = append(retiring, c)
	}
	m.children = make(map[int]*childProcess)
	m.old = append(m.old, retiring...)
	sameListeners := listenersEqual(m.Config.Listeners, cfg.Listeners)
	m.Config = cfg
	m.mu.Unlock()

	var result error
	for _, c := range retiring {
		if err := c.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if !sameListeners {
		newListeners, err := bindListeners(toListenerSpecs(cfg.Listeners))
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			newProtos := make([]string, len(cfg.Listeners))
			for i, l := range cfg.Listeners {
				newProtos[i] = l.Protocol
			}

			m.mu.Lock()
			old := m.listeners
			m.listeners = newListeners
			m.listenerProtos = newProtos
			m.mu.Unlock()
			for _, l := range old {
				_ = l.Close()
			}

			// Clean drops the now-closed old listeners from the tracked set
			// before re-adding the replacements, so the eventual shutdown
			// Close() pass never double-closes them.
			m.closers.Clean()
			for _, l := range newListeners {
				m.closers.Add(l)
			}
		}
	}

	if cfg.MaxServers != m.Registry.Capacity() {
		reg, err := registry.New(cfg.MaxServers, DefaultStatsTypes)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			m.mu.Lock()
			m.Registry = reg
			m.mu.Unlock()
		}
	}

	for i := 0; i < cfg.StartServers; i++ {
		if err := m.spawnAndTrack(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if result != nil {
		return CodeReconfigureFailed.Error(result)
	}
	return nil
}

func listenersEqual(a, b []config.ListenerSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func toListenerSpecs(specs []config.ListenerSpec) []listenerSpec {
	out := make([]listenerSpec, len(specs))
	for i, s := range specs {
		out[i] = listenerSpec{Address: s.Address, Port: s.Port, Protocol: s.Protocol}
	}
	return out
}
