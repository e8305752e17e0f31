package energy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/focus"
	"github.com/robotalks/neuron.go/pkg/store"
)

func TestModes(t *testing.T) {
	st, err := store.Open(store.NewMemFlash(store.MaxSize), 0)
	require.NoError(t, err)
	var m Manager
	require.NoError(t, m.Setup(st))

	req := focus.NewRequest("wireless.energy.modes")
	_, err = m.HandleFocus(req)
	require.NoError(t, err)
	require.Equal(t, []string{strings.TrimSpace(strings.Repeat("255 ", StorageSize))}, req.Output())

	consumed, err := m.HandleFocus(focus.NewRequest("wireless.energy.modes", "1", "2", "3"))
	require.NoError(t, err)
	require.True(t, consumed)
	require.True(t, st.NeedUpdate())
	require.Equal(t, []byte{1, 2, 3, 0xff}, m.Modes()[:4])

	// writes past the table are ignored
	args := strings.Fields(strings.Repeat("7 ", StorageSize+2))
	_, err = m.HandleFocus(focus.NewRequest("wireless.energy.modes", args...))
	require.NoError(t, err)
	require.Len(t, m.Modes(), StorageSize)
	require.Equal(t, byte(0xff), st.Read(StorageSize))
}

func TestCurrentModeAndDisable(t *testing.T) {
	st, err := store.Open(store.NewMemFlash(store.MaxSize), 0)
	require.NoError(t, err)
	var m Manager
	require.NoError(t, m.Setup(st))

	_, err = m.HandleFocus(focus.NewRequest("wireless.energy.currentMode", "2"))
	require.NoError(t, err)
	req := focus.NewRequest("wireless.energy.currentMode")
	_, err = m.HandleFocus(req)
	require.NoError(t, err)
	require.Equal(t, []string{"2"}, req.Output())

	_, err = m.HandleFocus(focus.NewRequest("wireless.energy.disable", "1"))
	require.NoError(t, err)
	require.EqualValues(t, 1, m.Disabled())

	_, err = m.HandleFocus(focus.NewRequest("wireless.energy.currentMode", "x"))
	require.Error(t, err)
}
