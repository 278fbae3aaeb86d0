//go:build !linux

package privilege

// NewFallback returns nil where no direct system call fallback exists.
func NewFallback() Fallback {
	return nil
}
