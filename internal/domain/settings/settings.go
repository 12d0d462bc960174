package settings

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"go.uber.org/zap"
)

// Themes accepted by Preferences.Theme
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Font size bounds in px
const (
	MinFontSize = 8
	MaxFontSize = 32
)

// Preferences is the user's UI preference record
type Preferences struct {
	Theme         string `json:"theme"`
	FontSize      int    `json:"fontSize"`
	Animations    bool   `json:"animations"`
	VisualEffects bool   `json:"visualEffects"`
}

// Defaults returns the preferences used before anything is saved
func Defaults() Preferences {
	return Preferences{
		Theme:         ThemeDark,
		FontSize:      14,
		Animations:    true,
		VisualEffects: true,
	}
}

// Validate checks field ranges
func (p Preferences) Validate() error {
	const op = "settings.validate"
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return errs.Validation(op, fmt.Sprintf("unknown theme %q", p.Theme))
	}
	if p.FontSize < MinFontSize || p.FontSize > MaxFontSize {
		return errs.Validation(op, fmt.Sprintf("font size %d outside [%d, %d]", p.FontSize, MinFontSize, MaxFontSize))
	}
	return nil
}

// Manager persists Preferences under storage.KeyPreferences
type Manager struct {
	mu     sync.Mutex
	store  storage.Store
	cached *Preferences // Protected by mu
	logger *zap.Logger
}

// NewManager creates a preferences manager over store
func NewManager(store storage.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, logger: logger}
}

// Get returns the saved preferences, or the defaults when nothing is saved.
// Stored fields that fail validation fall back to their defaults.
func (m *Manager) Get() (Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (Preferences, error) {
	if m.cached != nil {
		return *m.cached, nil
	}

	p := Defaults()
	if _, err := storage.LoadJSON(m.store, storage.KeyPreferences, &p); err != nil {
		return Defaults(), err
	}
	if err := p.Validate(); err != nil {
		m.logger.Warn("Stored preferences invalid, using defaults", zap.Error(err))
		p = repair(p)
	}
	m.cached = &p
	return p, nil
}

// Save validates and persists p
func (m *Manager) Save(p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := storage.SaveJSON(m.store, storage.KeyPreferences, p); err != nil {
		return err
	}
	m.cached = &p
	m.logger.Debug("Preferences saved", zap.String("theme", p.Theme), zap.Int("font_size", p.FontSize))
	return nil
}

// Set changes one preference by its JSON name, parsing value from text
func (m *Manager) Set(key, value string) (Preferences, error) {
	const op = "settings.set"

	m.mu.Lock()
	p, err := m.load()
	m.mu.Unlock()
	if err != nil {
		return Preferences{}, err
	}

	switch key {
	case "theme":
		p.Theme = value
	case "fontSize":
		n, err := strconv.Atoi(value)
		if err != nil {
			return Preferences{}, errs.Validation(op, fmt.Sprintf("fontSize must be a number, got %q", value))
		}
		p.FontSize = n
	case "animations", "visualEffects":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return Preferences{}, errs.Validation(op, fmt.Sprintf("%s must be a boolean, got %q", key, value))
		}
		if key == "animations" {
			p.Animations = b
		} else {
			p.VisualEffects = b
		}
	default:
		return Preferences{}, errs.NotFound(op, "preference "+key)
	}

	if err := m.Save(p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Reset restores and persists the defaults
func (m *Manager) Reset() (Preferences, error) {
	p := Defaults()
	if err := m.Save(p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Keys returns the settable preference names
func Keys() []string {
	return []string{"animations", "fontSize", "theme", "visualEffects"}
}

// repair replaces out-of-range fields with defaults
func repair(p Preferences) Preferences {
	d := Defaults()
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		p.Theme = d.Theme
	}
	if p.FontSize < MinFontSize || p.FontSize > MaxFontSize {
		p.FontSize = d.FontSize
	}
	return p
}
