// Package orgdir keeps an in-memory snapshot of the org-unit directory. The
// tree changes rarely but is read on every scoped request, so requests read
// the snapshot and a background job refreshes it from the store.
package orgdir

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"korgan-irp/config"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

type Directory struct {
	store  store.OrgUnitsStore
	cfg    *config.AppConfig
	logger *utils.Logger

	mu        sync.RWMutex
	units     []store.OrgUnit
	byID      map[string]*store.OrgUnit
	loadedAt  time.Time
	sched     *cron.Cron
	schedOnce sync.Once
}

func NewDirectory(units store.OrgUnitsStore, cfg *config.AppConfig, logger *utils.Logger) *Directory {
	return &Directory{store: units, cfg: cfg, logger: logger}
}

// Load reads the full org-unit list from the store and swaps the snapshot.
func (d *Directory) Load(ctx context.Context) error {
	units, err := d.store.List(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]*store.OrgUnit, len(units))
	for i := range units {
		byID[units[i].ID] = &units[i]
	}
	d.mu.Lock()
	d.units = units
	d.byID = byID
	d.loadedAt = utils.NowUTC()
	d.mu.Unlock()
	return nil
}

// Units returns the current snapshot. Callers must not mutate it.
func (d *Directory) Units() []store.OrgUnit {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.units
}

// Get resolves one unit from the snapshot; nil when unknown.
func (d *Directory) Get(id string) *store.OrgUnit {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID[id]
}

// LoadedAt reports when the snapshot was last refreshed.
func (d *Directory) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}

// Start schedules periodic refresh per the configured cron spec. Safe to
// call once; a failed refresh keeps the previous snapshot.
func (d *Directory) Start() error {
	var err error
	d.schedOnce.Do(func() {
		sched := cron.New()
		_, err = sched.AddFunc(d.cfg.OrgDir.RefreshSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if refreshErr := d.Load(ctx); refreshErr != nil {
				d.logger.Errorf("orgdir: refresh failed: %v", refreshErr)
			}
		})
		if err != nil {
			return
		}
		sched.Start()
		d.mu.Lock()
		d.sched = sched
		d.mu.Unlock()
	})
	return err
}

func (d *Directory) Stop() {
	d.mu.Lock()
	sched := d.sched
	d.sched = nil
	d.mu.Unlock()
	if sched != nil {
		<-sched.Stop().Done()
	}
}
