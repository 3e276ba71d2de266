// Package energy implements capped pools that regenerate one unit per interval.
package energy

import (
	"time"

	"github.com/kasuganosora/scholarquest/game/gameerr"
)

// Pool is a capped, time-regenerating resource.
type Pool struct {
	Value     int           `json:"value"`
	Max       int           `json:"max"`
	LastRegen time.Time     `json:"last_regen"`
	Interval  time.Duration `json:"-"`
}

// Regen applies every whole interval elapsed since LastRegen. LastRegen
// advances by exactly the intervals consumed, so partial progress toward
// the next unit is kept. Calling Regen again at the same instant is a no-op.
func Regen(p Pool, now time.Time) Pool {
	if p.Interval <= 0 {
		return p
	}
	n := int64(now.Sub(p.LastRegen) / p.Interval)
	if n <= 0 {
		return p
	}
	if p.Value < p.Max {
		missing := int64(p.Max - p.Value)
		if n >= missing {
			p.Value = p.Max
		} else {
			p.Value += int(n)
		}
	}
	p.LastRegen = p.LastRegen.Add(time.Duration(n) * p.Interval)
	return p
}

// Spend regenerates, checks sufficiency and debits cost as one step.
func Spend(p Pool, cost int, now time.Time) (Pool, error) {
	if cost < 0 {
		return p, gameerr.Invalid("negative energy cost %d", cost)
	}
	p = Regen(p, now)
	if p.Value < cost {
		return p, gameerr.Precondition("not enough energy", gameerr.Detail{
			Clause:   "energy",
			Current:  itoa(p.Value),
			Required: itoa(cost),
			Message:  "need " + itoa(cost-p.Value) + " more energy",
		})
	}
	p.Value -= cost
	return p, nil
}

// Refill sets the pool to full and restarts its regen window at now.
func Refill(p Pool, now time.Time) Pool {
	p.Value = p.Max
	p.LastRegen = now
	return p
}

// Add credits amount without exceeding Max.
func Add(p Pool, amount int) Pool {
	p.Value = min(p.Max, p.Value+amount)
	return p
}

// NextUnitAt returns when the next unit regenerates, or the zero time if full.
func NextUnitAt(p Pool) time.Time {
	if p.Value >= p.Max || p.Interval <= 0 {
		return time.Time{}
	}
	return p.LastRegen.Add(p.Interval)
}
