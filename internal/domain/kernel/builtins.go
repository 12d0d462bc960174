package kernel

import (
	"fmt"

	"github.com/GriffinCanCode/WebDesk/internal/domain/filesystem"
	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/shared/paths"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"go.uber.org/zap"
)

// Built-in entry point names
const (
	BuiltinAbout    = "about"
	BuiltinNotepad  = "notepad"
	BuiltinSettings = "settings"
)

// DefaultBuiltins registers the built-in applications
func DefaultBuiltins() *process.Registry {
	r := process.NewRegistry()
	mustRegister(r, BuiltinAbout, func() process.Application {
		return process.AppFuncs{OnInit: initAbout}
	})
	mustRegister(r, BuiltinNotepad, func() process.Application {
		return &notepad{}
	})
	mustRegister(r, BuiltinSettings, func() process.Application {
		return process.AppFuncs{}
	})
	return r
}

func mustRegister(r *process.Registry, name string, f process.Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// DefaultManifests are seeded into an empty catalog
func DefaultManifests() []types.Manifest {
	resizable := false
	return []types.Manifest{
		{
			ID:          BuiltinAbout,
			Title:       "About",
			Entry:       types.BuiltinPrefix + BuiltinAbout,
			Permissions: []string{},
			Window:      &types.WindowSpec{Width: 360, Height: 240, Resizable: &resizable},
			Builtin:     true,
		},
		{
			ID:          BuiltinNotepad,
			Title:       "Notepad",
			Entry:       types.BuiltinPrefix + BuiltinNotepad,
			Permissions: []string{filesystem.PermRead, filesystem.PermWrite},
			Help:        "<p>Open a file with the <code>path</code> launch parameter.</p>",
			Builtin:     true,
		},
		{
			ID:          BuiltinSettings,
			Title:       "Settings",
			Entry:       types.BuiltinPrefix + BuiltinSettings,
			Permissions: []string{},
			Builtin:     true,
		},
	}
}

func initAbout(ctx *process.AppContext) error {
	title := ctx.Manifest.DisplayTitle()
	if v := ctx.Manifest.Version; v != "" {
		title = fmt.Sprintf("%s %s", title, v)
	}
	return ctx.SetTitle(title)
}

// notepad opens the file named by the "path" launch parameter
type notepad struct {
	path    string
	content string
	logger  *zap.Logger
}

func (n *notepad) Init(ctx *process.AppContext) error {
	n.logger = ctx.Logger
	p, _ := ctx.Params["path"].(string)
	if p == "" {
		return ctx.SetTitle("Untitled")
	}

	content, err := ctx.Host.ReadFile(ctx.Context, p)
	if err != nil {
		return err
	}
	n.path, n.content = p, content
	return ctx.SetTitle(paths.Base(p))
}

func (n *notepad) Terminate() {
	if n.logger != nil && n.path != "" {
		n.logger.Debug("Notepad closed", zap.String("path", n.path), zap.Int("bytes", len(n.content)))
	}
}
