// Package version answers the firmware version query.
package version

import "github.com/robotalks/neuron.go/pkg/focus"

// Default is reported when no version is configured.
const Default = "v0.0.0"

// Handler serves "version".
type Handler struct {
	Version string
}

// FocusCommands implements focus.Handler.
func (h *Handler) FocusCommands() []string {
	return []string{"version"}
}

// HandleFocus implements focus.Handler.
func (h *Handler) HandleFocus(req *focus.Request) (bool, error) {
	if req.Command != "version" {
		return false, nil
	}
	v := h.Version
	if v == "" {
		v = Default
	}
	req.Send(v)
	return true, nil
}
