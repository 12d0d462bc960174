package ui

import (
	"testing"

	"github.com/GriffinCanCode/WebDesk/internal/domain/events"
	"github.com/stretchr/testify/assert"
)

func TestHeadlessScreens(t *testing.T) {
	h := NewHeadless(nil)
	assert.Equal(t, ScreenBoot, h.Screen())

	h.Progress(40, "filesystem")
	assert.Equal(t, 40, h.LastProgress())

	h.ShowDesktop("alice")
	assert.Equal(t, ScreenDesktop, h.Screen())
	assert.Equal(t, "alice", h.User())

	h.ShowLogin()
	assert.Equal(t, ScreenLogin, h.Screen())
	assert.Empty(t, h.User())

	h.ShowError("boot failed", "")
	assert.Equal(t, ScreenError, h.Screen())
	assert.Equal(t, "boot failed", h.LastError())

	h.Close()
	assert.Equal(t, ScreenOff, h.Screen())
}

func TestHeadlessNotificationHistoryIsBounded(t *testing.T) {
	h := NewHeadless(nil)
	h.maxHistory = 2
	for _, title := range []string{"a", "b", "c"} {
		h.Notify(events.Notification{Title: title, Level: "info"})
	}

	got := h.Notifications()
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Title)
	assert.Equal(t, "c", got[1].Title)
}
