package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestEdgesResetAfterPostUpdate(t *testing.T) {
	m := NewManager()

	m.HandleKeyEvent(glfw.KeyI, glfw.Press)
	assert.True(t, m.JustPressed(ActionToggleInterpolation))
	assert.True(t, m.IsActive(ActionToggleInterpolation))

	m.HandleKeyEvent(glfw.KeyI, glfw.Repeat)
	m.PostUpdate()
	assert.False(t, m.JustPressed(ActionToggleInterpolation))
	assert.True(t, m.IsActive(ActionToggleInterpolation), "held keys stay active")

	m.HandleKeyEvent(glfw.KeyI, glfw.Release)
	assert.True(t, m.JustReleased(ActionToggleInterpolation))
	assert.False(t, m.IsActive(ActionToggleInterpolation))
}

func TestBindings(t *testing.T) {
	m := NewManager()
	m.BindKey(glfw.KeyQ, ActionQuit)
	m.BindKey(glfw.KeyQ, ActionCount)

	m.HandleKeyEvent(glfw.KeyQ, glfw.Press)
	assert.True(t, m.JustPressed(ActionQuit))

	m.UnbindKey(glfw.KeyV)
	m.HandleKeyEvent(glfw.KeyV, glfw.Press)
	assert.False(t, m.IsActive(ActionShowStats))

	assert.False(t, m.JustPressed(Action(-1)))
	assert.False(t, m.IsActive(ActionCount))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "toggle-culling", ActionToggleCulling.String())
	assert.Equal(t, "unknown", ActionCount.String())
}
