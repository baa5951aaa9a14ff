package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/corpauth/gateway/pkg/observability"
)

// ConnectionInfo describes one identity provider connection: which tenant
// its users land in plus display metadata for the frontend.
type ConnectionInfo struct {
	Tenant  string `yaml:"tenant"`
	IdPName string `yaml:"idpName"`
	IdPLogo string `yaml:"idpLogo"`
}

type connectionFile struct {
	Connections map[string]ConnectionInfo `yaml:"connections"`
}

// ConnectionMap holds the connection mapping loaded from YAML. Watch keeps
// it current while the process runs; lookups always see the last good load.
type ConnectionMap struct {
	mu   sync.RWMutex
	byID map[string]ConnectionInfo

	path    string
	logger  *observability.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewConnectionMap loads the mapping file. An empty path yields an empty,
// watch-free map, which is valid for deployments without federation.
func NewConnectionMap(path string, logger *observability.Logger) (*ConnectionMap, error) {
	m := &ConnectionMap{
		byID:   make(map[string]ConnectionInfo),
		path:   path,
		logger: logger,
	}
	if path == "" {
		return m, nil
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ConnectionMap) reload() error {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("reading connection mapping %s: %w", m.path, err)
	}

	var file connectionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parsing connection mapping %s: %w", m.path, err)
	}

	byID := file.Connections
	if byID == nil {
		byID = make(map[string]ConnectionInfo)
	}

	m.mu.Lock()
	m.byID = byID
	m.mu.Unlock()

	m.logger.WithField("connections", len(byID)).Info("connection mapping loaded")
	return nil
}

// Lookup returns the info for a connection ID.
func (m *ConnectionMap) Lookup(connectionID string) (ConnectionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.byID[connectionID]
	return info, ok
}

// Tenants returns a snapshot of the connection-to-tenant mapping.
func (m *ConnectionMap) Tenants() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tenants := make(map[string]string, len(m.byID))
	for id, info := range m.byID {
		if info.Tenant != "" {
			tenants[id] = info.Tenant
		}
	}
	return tenants
}

// Watch reloads the mapping whenever the file changes. The directory is
// watched rather than the file itself so editors that replace the file
// atomically still trigger a reload. A broken edit keeps the last good
// mapping in place.
func (m *ConnectionMap) Watch() error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating mapping watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching mapping directory: %w", err)
	}

	m.watcher = watcher
	m.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != m.path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.reload(); err != nil {
					m.logger.WithError(err).Error("connection mapping reload failed, keeping previous mapping")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.WithError(err).Error("connection mapping watcher error")
			case <-m.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if one is running.
func (m *ConnectionMap) Close() error {
	if m.watcher == nil {
		return nil
	}
	close(m.done)
	return m.watcher.Close()
}
