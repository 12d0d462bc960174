package session

import (
	"context"
	"errors"
	"testing"

	"github.com/GriffinCanCode/WebDesk/internal/domain/process"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/storage"
	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/GriffinCanCode/WebDesk/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func processes(t *testing.T, appIDs ...string) *process.Manager {
	t.Helper()
	pm := process.NewManager(config.Default().Workspace, nil, nil)
	for _, appID := range appIDs {
		_, err := pm.CreateProcess(appID, &types.Manifest{ID: appID, Title: appID, Entry: appID}, map[string]interface{}{"from": appID})
		require.NoError(t, err)
	}
	return pm
}

func TestStartLoadForget(t *testing.T) {
	m := NewManager(storage.NewMemory(), nil)

	_, err := m.Load()
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Empty(t, m.Token())

	rec, err := m.Start("alice", "tok-1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	loaded, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, "tok-1", m.Token())

	require.NoError(t, m.Forget())
	assert.Empty(t, m.Token())
	require.NoError(t, m.Forget(), "forget is idempotent")

	_, err = m.Start("", "tok")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCaptureWorkspace(t *testing.T) {
	pm := processes(t, "notepad", "clock")

	ws := Capture(pm)
	require.Len(t, ws.Apps, 2)
	assert.Equal(t, "notepad", ws.Apps[0].AppID)
	assert.Equal(t, "clock", ws.Apps[1].AppID)
	assert.Equal(t, "clock", ws.Apps[1].Title)
	assert.Equal(t, "clock", ws.FocusedID, "last opened window is active")
}

func TestSaveAndRestoreWorkspace(t *testing.T) {
	store := storage.NewMemory()
	m := NewManager(store, nil)

	assert.Error(t, m.SaveWorkspace(processes(t)), "no session yet")

	_, err := m.Start("alice", "tok")
	require.NoError(t, err)
	require.NoError(t, m.SaveWorkspace(processes(t, "notepad", "broken", "clock")))

	var launched []string
	restored, err := NewManager(store, nil).RestoreWorkspace(context.Background(),
		func(_ context.Context, appID string, params map[string]interface{}) error {
			if appID == "broken" {
				return errors.New("gone")
			}
			assert.Equal(t, appID, params["from"])
			launched = append(launched, appID)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 2, restored)
	assert.Equal(t, []string{"notepad", "clock"}, launched)
	assert.Equal(t, true, m.Stats()["active"])
}

func TestRestoreWithoutWorkspace(t *testing.T) {
	m := NewManager(storage.NewMemory(), nil)
	_, err := m.Start("alice", "tok")
	require.NoError(t, err)

	n, err := m.RestoreWorkspace(context.Background(), func(context.Context, string, map[string]interface{}) error {
		t.Fatal("nothing to relaunch")
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, n)
}
