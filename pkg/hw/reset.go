package hw

// Resetter restarts the board. cause is logged and reported.
type Resetter interface {
	Reset(cause error)
}

// ResetFunc is the func form of Resetter.
type ResetFunc func(error)

// Reset implements Resetter.
func (f ResetFunc) Reset(cause error) {
	f(cause)
}

// HID is the host report output.
type HID interface {
	ReleaseAllKeys()
	Flush() error
}

// NopHID discards reports.
type NopHID struct{}

// ReleaseAllKeys implements HID.
func (NopHID) ReleaseAllKeys() {}

// Flush implements HID.
func (NopHID) Flush() error { return nil }
