package catalog

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

// Catalog is the list of locally installed application manifests, stored as
// one JSON array under storage.KeyInstalledApps. When the store fails the
// catalog keeps working from memory for the rest of the session.
type Catalog struct {
	mu     sync.Mutex
	store  storage.Store
	memory []types.Manifest // Protected by mu; non-nil once the store failed
	logger *zap.Logger
}

// New creates a catalog over store
func New(store storage.Store, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, logger: logger}
}

// Install adds or replaces a manifest
func (c *Catalog) Install(m types.Manifest) error {
	m = *m.Clone()
	Sanitize(&m)
	if err := m.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	apps, err := c.load()
	if err != nil {
		return err
	}
	replaced := false
	for i := range apps {
		if apps[i].ID == m.ID {
			apps[i] = m
			replaced = true
			break
		}
	}
	if !replaced {
		apps = append(apps, m)
	}
	if err := c.save(apps); err != nil {
		return err
	}

	c.logger.Info("Application installed", zap.String("app_id", m.ID), zap.Bool("replaced", replaced))
	return nil
}

// Uninstall removes a manifest and reports whether it was installed
func (c *Catalog) Uninstall(appID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	apps, err := c.load()
	if err != nil {
		return false, err
	}
	for i := range apps {
		if apps[i].ID == appID {
			apps = append(apps[:i], apps[i+1:]...)
			if err := c.save(apps); err != nil {
				return false, err
			}
			c.logger.Info("Application uninstalled", zap.String("app_id", appID))
			return true, nil
		}
	}
	return false, nil
}

// Get returns an installed manifest
func (c *Catalog) Get(appID string) (*types.Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	apps, err := c.load()
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ID == appID {
			return apps[i].Clone(), nil
		}
	}
	return nil, errs.NotFound("catalog.get", fmt.Sprintf("application %s", appID))
}

// List returns installed manifests ordered by id
func (c *Catalog) List() ([]types.Manifest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	apps, err := c.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps, nil
}

// Seed installs each manifest that is not installed yet and returns how
// many were added. Invalid manifests are logged and skipped.
func (c *Catalog) Seed(manifests []types.Manifest) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	apps, err := c.load()
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(apps))
	for _, a := range apps {
		have[a.ID] = true
	}

	added := 0
	for _, m := range manifests {
		m = *m.Clone()
		Sanitize(&m)
		if err := m.Validate(); err != nil {
			c.logger.Warn("Skipping invalid seed manifest", zap.String("app_id", m.ID), zap.Error(err))
			continue
		}
		if have[m.ID] {
			continue
		}
		apps = append(apps, m)
		have[m.ID] = true
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := c.save(apps); err != nil {
		return 0, err
	}
	c.logger.Info("Seeded applications", zap.Int("added", added))
	return added, nil
}

// InMemory reports whether the catalog fell back to memory
func (c *Catalog) InMemory() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memory != nil
}

// load reads the stored list. Caller holds mu.
func (c *Catalog) load() ([]types.Manifest, error) {
	if c.memory != nil {
		return append([]types.Manifest(nil), c.memory...), nil
	}
	apps := []types.Manifest{}
	if c.store == nil {
		c.memory = apps
		return apps, nil
	}
	if _, err := storage.LoadJSON(c.store, storage.KeyInstalledApps, &apps); err != nil {
		c.logger.Warn("Installed applications unreadable, catalog is in memory", zap.Error(err))
		c.memory = []types.Manifest{}
		return []types.Manifest{}, nil
	}
	return apps, nil
}

// save replaces the stored list. Caller holds mu.
func (c *Catalog) save(apps []types.Manifest) error {
	if c.memory != nil {
		c.memory = append([]types.Manifest{}, apps...)
		return nil
	}
	if err := storage.SaveJSON(c.store, storage.KeyInstalledApps, apps); err != nil {
		c.logger.Warn("Failed to persist installed applications, catalog is in memory", zap.Error(err))
		c.memory = append([]types.Manifest{}, apps...)
	}
	return nil
}
