// Package leveling converts XP gains into levels along a power curve.
package leveling

import (
	"math"

	"github.com/kasuganosora/scholarquest/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Curve defines xpToNext(level) = floor(Base * level^Exponent).
type Curve struct {
	Base     float64
	Exponent float64
}

// FromConfig builds a Curve from its configuration block.
func FromConfig(c config.CurveConfig) Curve {
	return Curve{Base: c.Base, Exponent: c.Exponent}
}

// XPToNext returns the XP needed to leave level.
func (c Curve) XPToNext(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(c.Base * math.Pow(float64(level), c.Exponent)))
}

// Progress is the outcome of applying an XP gain.
type Progress struct {
	Level     int             `json:"level"`
	XP        decimal.Decimal `json:"xp"`
	XPToNext  int64           `json:"xp_to_next"`
	Gained    int             `json:"levels_gained"`
	LeveledUp bool            `json:"leveled_up"`
}

// Apply adds gain to xp and drains it across as many level-ups as it
// covers. The returned XP is the remainder carried toward the next level.
// Negative gains are ignored.
func (c Curve) Apply(level int, xp, gain decimal.Decimal) Progress {
	if level < 1 {
		level = 1
	}
	if gain.IsPositive() {
		xp = xp.Add(gain)
	}
	start := level
	for {
		need := c.XPToNext(level)
		if need <= 0 {
			break
		}
		needDec := decimal.NewFromInt(need)
		if xp.LessThan(needDec) {
			break
		}
		xp = xp.Sub(needDec)
		level++
	}
	return Progress{
		Level:     level,
		XP:        xp,
		XPToNext:  c.XPToNext(level),
		Gained:    level - start,
		LeveledUp: level > start,
	}
}

// ApplyInt is Apply for integer XP counters such as subject progress.
func (c Curve) ApplyInt(level int, xp, gain int64) (newLevel int, newXP int64, leveledUp bool) {
	p := c.Apply(level, decimal.NewFromInt(xp), decimal.NewFromInt(gain))
	return p.Level, p.XP.IntPart(), p.LeveledUp
}

// WithBonus returns floor(amount * (1 + sum(percents)/100)). Bonuses are additive.
func WithBonus(amount decimal.Decimal, percents ...int) decimal.Decimal {
	sum := 0
	for _, p := range percents {
		sum += p
	}
	if sum == 0 {
		return amount.Floor()
	}
	return amount.Mul(hundred.Add(decimal.NewFromInt(int64(sum)))).Div(hundred).Floor()
}

// WithBonusInt is WithBonus for int64 amounts.
func WithBonusInt(amount int64, percents ...int) int64 {
	return WithBonus(decimal.NewFromInt(amount), percents...).IntPart()
}
