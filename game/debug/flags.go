// Package debug holds runtime toggles and the administrative shortcuts used
// while testing the game: energy refill, direct grade grants and resets.
package debug

import "sync/atomic"

// Flags are process-wide toggles shared by the services that honour them.
// A nil *Flags reports every toggle as off.
type Flags struct {
	cooldownDisabled atomic.Bool
}

// NewFlags returns Flags with the study cooldown toggle preset.
func NewFlags(cooldownDisabled bool) *Flags {
	f := &Flags{}
	f.cooldownDisabled.Store(cooldownDisabled)
	return f
}

func (f *Flags) CooldownDisabled() bool {
	return f != nil && f.cooldownDisabled.Load()
}

func (f *Flags) SetCooldownDisabled(v bool) {
	f.cooldownDisabled.Store(v)
}

// ToggleCooldown flips the cooldown toggle and returns the new value.
func (f *Flags) ToggleCooldown() bool {
	for {
		old := f.cooldownDisabled.Load()
		if f.cooldownDisabled.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
