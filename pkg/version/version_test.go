package version

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/neuron.go/pkg/focus"
)

func TestVersion(t *testing.T) {
	testCases := []struct {
		version, out string
	}{
		{"", Default},
		{"v1.2.3", "v1.2.3"},
	}
	for _, tc := range testCases {
		t.Run(tc.out, func(t *testing.T) {
			req := focus.NewRequest("version")
			consumed, err := (&Handler{Version: tc.version}).HandleFocus(req)
			require.NoError(t, err)
			require.True(t, consumed)
			require.Equal(t, []string{tc.out}, req.Output())
		})
	}
	consumed, _ := (&Handler{}).HandleFocus(focus.NewRequest("versions"))
	require.False(t, consumed)
}
