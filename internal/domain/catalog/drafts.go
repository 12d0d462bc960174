package catalog

import (
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"github.com/GriffinCanCode/WebDesk/internal/shared/utils"
	"go.uber.org/zap"
)

// Draft is a developer-authored application not yet submitted
type Draft struct {
	ID        id.DraftID     `json:"id"`
	Manifest  types.Manifest `json:"manifest"`
	Source    string         `json:"source,omitempty"`
	Checksum  string         `json:"checksum"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// DraftUpdate carries the fields to change; nil leaves a field as is
type DraftUpdate struct {
	Manifest *types.Manifest
	Source   *string
}

// Drafts stores drafts as one JSON array under storage.KeyDrafts
type Drafts struct {
	mu     sync.Mutex
	store  storage.Store
	now    func() time.Time
	logger *zap.Logger
}

// NewDrafts creates a draft store
func NewDrafts(store storage.Store, logger *zap.Logger) *Drafts {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafts{store: store, now: time.Now, logger: logger}
}

// Create stores a new draft
func (d *Drafts) Create(manifest types.Manifest, source string) (*Draft, error) {
	manifest = *manifest.Clone()
	if err := checkDraft(&manifest, source); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	drafts, err := d.load()
	if err != nil {
		return nil, err
	}
	now := d.now()
	draft := Draft{
		ID:        id.NewDraftID(),
		Manifest:  manifest,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if draft.Checksum, err = checksum(&draft); err != nil {
		return nil, err
	}
	drafts = append(drafts, draft)
	if err := d.save(drafts); err != nil {
		return nil, err
	}

	d.logger.Info("Draft created", zap.String("draft_id", draft.ID.String()), zap.String("app_id", manifest.ID))
	return &draft, nil
}

// Import parses a manifest document (JSON or YAML) into a new draft
func (d *Drafts) Import(data []byte, format Format, source string) (*Draft, error) {
	m, err := ParseManifest(data, format)
	if err != nil {
		return nil, err
	}
	return d.Create(*m, source)
}

// Update changes a draft
func (d *Drafts) Update(draftID id.DraftID, u DraftUpdate) (*Draft, error) {
	const op = "drafts.update"

	d.mu.Lock()
	defer d.mu.Unlock()

	drafts, err := d.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(drafts, draftID)
	if i < 0 {
		return nil, errs.NotFound(op, "draft "+draftID.String())
	}

	next := drafts[i]
	if u.Manifest != nil {
		next.Manifest = *u.Manifest.Clone()
	}
	if u.Source != nil {
		next.Source = *u.Source
	}
	if err := checkDraft(&next.Manifest, next.Source); err != nil {
		return nil, err
	}
	next.UpdatedAt = d.now()
	if next.Checksum, err = checksum(&next); err != nil {
		return nil, err
	}

	drafts[i] = next
	if err := d.save(drafts); err != nil {
		return nil, err
	}
	return &next, nil
}

// Get returns a draft
func (d *Drafts) Get(draftID id.DraftID) (*Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	drafts, err := d.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(drafts, draftID)
	if i < 0 {
		return nil, errs.NotFound("drafts.get", "draft "+draftID.String())
	}
	out := drafts[i]
	return &out, nil
}

// List returns drafts, most recently updated first
func (d *Drafts) List() ([]Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	drafts, err := d.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(drafts, func(i, j int) bool { return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt) })
	return drafts, nil
}

// Delete removes a draft and reports whether it existed
func (d *Drafts) Delete(draftID id.DraftID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	drafts, err := d.load()
	if err != nil {
		return false, err
	}
	i := indexOf(drafts, draftID)
	if i < 0 {
		return false, nil
	}
	drafts = append(drafts[:i], drafts[i+1:]...)
	if err := d.save(drafts); err != nil {
		return false, err
	}
	return true, nil
}

// Export renders a draft's manifest as JSON or YAML
func (d *Drafts) Export(draftID id.DraftID, format Format) ([]byte, error) {
	draft, err := d.Get(draftID)
	if err != nil {
		return nil, err
	}
	return EncodeManifest(&draft.Manifest, format)
}

func (d *Drafts) load() ([]Draft, error) {
	drafts := []Draft{}
	if _, err := storage.LoadJSON(d.store, storage.KeyDrafts, &drafts); err != nil {
		return nil, err
	}
	return drafts, nil
}

func (d *Drafts) save(drafts []Draft) error {
	return storage.SaveJSON(d.store, storage.KeyDrafts, drafts)
}

func checkDraft(m *types.Manifest, source string) error {
	Sanitize(m)
	if err := m.Validate(); err != nil {
		return err
	}
	if err := utils.ValidateSize([]byte(source), utils.MaxSourceSize, "source"); err != nil {
		return errs.Wrap(errs.KindValidation, "drafts.check", err)
	}
	return nil
}

func checksum(d *Draft) (string, error) {
	return utils.HashJSON(struct {
		Manifest types.Manifest `json:"manifest"`
		Source   string         `json:"source"`
	}{d.Manifest, d.Source})
}

func indexOf(drafts []Draft, draftID id.DraftID) int {
	for i := range drafts {
		if drafts[i].ID == draftID {
			return i
		}
	}
	return -1
}
