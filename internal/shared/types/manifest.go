package types

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/utils"
)

// EntryKind tells how a manifest's entry point is resolved
type EntryKind string

const (
	// EntryBuiltin names an initializer registered at startup
	EntryBuiltin EntryKind = "builtin"
	// EntryModule is a script evaluated in the sandbox
	EntryModule EntryKind = "module"
)

// BuiltinPrefix marks an explicit built-in entry, e.g. "builtin:notepad"
const BuiltinPrefix = "builtin:"

// WindowSpec is the initial window requested by a manifest
type WindowSpec struct {
	Width     int   `json:"width,omitempty" yaml:"width,omitempty"`
	Height    int   `json:"height,omitempty" yaml:"height,omitempty"`
	Resizable *bool `json:"resizable,omitempty" yaml:"resizable,omitempty"`
}

// Manifest describes an installable application
type Manifest struct {
	ID          string      `json:"id" yaml:"id"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Name        string      `json:"name,omitempty" yaml:"name,omitempty"`
	Entry       string      `json:"entry" yaml:"entry"`
	Permissions []string    `json:"permissions" yaml:"permissions"`
	Window      *WindowSpec `json:"window,omitempty" yaml:"window,omitempty"`
	Help        string      `json:"help,omitempty" yaml:"help,omitempty"`
	Icon        string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	Version     string      `json:"version,omitempty" yaml:"version,omitempty"`
	Author      string      `json:"author,omitempty" yaml:"author,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Builtin     bool        `json:"builtin,omitempty" yaml:"builtin,omitempty"`
}

// DisplayTitle returns Title, then Name, then ID
func (m *Manifest) DisplayTitle() string {
	switch {
	case m.Title != "":
		return m.Title
	case m.Name != "":
		return m.Name
	default:
		return m.ID
	}
}

// Resizable reports whether the window may be resized (default true)
func (m *Manifest) Resizable() bool {
	if m.Window == nil || m.Window.Resizable == nil {
		return true
	}
	return *m.Window.Resizable
}

// EntryKind classifies the entry point. Scripts (".js") and paths are
// modules; everything else is looked up among the built-ins.
func (m *Manifest) EntryKind() EntryKind {
	entry := strings.TrimSpace(m.Entry)
	switch {
	case strings.HasPrefix(entry, BuiltinPrefix):
		return EntryBuiltin
	case m.Builtin:
		return EntryBuiltin
	case strings.HasSuffix(entry, ".js"), strings.Contains(entry, "/"):
		return EntryModule
	default:
		return EntryBuiltin
	}
}

// BuiltinName returns the registry name of a built-in entry
func (m *Manifest) BuiltinName() string {
	return strings.TrimPrefix(strings.TrimSpace(m.Entry), BuiltinPrefix)
}

// Validate checks the fields required to launch
func (m *Manifest) Validate() error {
	const op = "manifest.validate"
	if err := utils.ValidateAppID(m.ID); err != nil {
		return errs.Wrap(errs.KindValidation, op, err)
	}
	if m.Title == "" && m.Name == "" {
		return errs.Validation(op, fmt.Sprintf("manifest %s needs a title or name", m.ID))
	}
	if err := utils.ValidateName(m.DisplayTitle(), "title"); err != nil {
		return errs.Wrap(errs.KindValidation, op, err)
	}
	if strings.TrimSpace(m.Entry) == "" {
		return errs.Validation(op, fmt.Sprintf("manifest %s has no entry point", m.ID))
	}
	if m.EntryKind() == EntryBuiltin && m.BuiltinName() == "" {
		return errs.Validation(op, fmt.Sprintf("manifest %s has an empty built-in entry", m.ID))
	}
	if err := utils.ValidatePermissions(m.Permissions); err != nil {
		return errs.Wrap(errs.KindValidation, op, err)
	}
	if err := utils.ValidateDescription(m.Description, "description"); err != nil {
		return errs.Wrap(errs.KindValidation, op, err)
	}
	if w := m.Window; w != nil && (w.Width < 0 || w.Height < 0) {
		return errs.Validation(op, fmt.Sprintf("manifest %s has a negative window size", m.ID))
	}
	if len(m.Help) > utils.MaxHelpSize {
		return errs.Validation(op, fmt.Sprintf("manifest %s help exceeds %d bytes", m.ID, utils.MaxHelpSize))
	}
	return nil
}

// Clone returns a deep copy
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	c := *m
	c.Permissions = append([]string(nil), m.Permissions...)
	if m.Window != nil {
		w := *m.Window
		if m.Window.Resizable != nil {
			r := *m.Window.Resizable
			w.Resizable = &r
		}
		c.Window = &w
	}
	return &c
}
