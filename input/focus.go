// Package input routes decoded keys to whichever component currently owns
// the keyboard.
package input

import (
	"sync/atomic"
)

// Target is the component that receives keyboard input.
type Target uint32

const (
	// TargetNone discards all input.
	TargetNone Target = iota
	// TargetTerminal sends input to the shell's line editor.
	TargetTerminal
	// TargetApplication sends input to the running Application.
	TargetApplication
	// TargetGraphicMode sends input to the graphics mode handler.
	TargetGraphicMode
)

func (t Target) String() string {
	switch t {
	case TargetNone:
		return "None"
	case TargetTerminal:
		return "Terminal"
	case TargetApplication:
		return "Application"
	case TargetGraphicMode:
		return "GraphicMode"
	default:
		return "Unknown"
	}
}

// Focus holds the current input Target. It is mutated only by the component
// taking or giving up focus, and read once per key by the Router. The zero
// value is TargetNone.
type Focus struct {
	v atomic.Uint32
}

// NewFocus returns a Focus set to target.
func NewFocus(target Target) *Focus {
	f := &Focus{}
	f.Store(target)
	return f
}

// Load returns the current target.
func (f *Focus) Load() Target {
	return Target(f.v.Load())
}

// Store sets the target.
func (f *Focus) Store(target Target) {
	f.v.Store(uint32(target))
}

// Swap sets the target and returns the previous one.
func (f *Focus) Swap(target Target) Target {
	return Target(f.v.Swap(uint32(target)))
}

// CompareAndSwap sets the target to new only if it is currently old.
func (f *Focus) CompareAndSwap(old, new Target) bool {
	return f.v.CompareAndSwap(uint32(old), uint32(new))
}
