package leveling

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	characterCurve = Curve{Base: 100, Exponent: 1.5}
	subjectCurve   = Curve{Base: 50, Exponent: 1.8}
)

func TestXPToNext(t *testing.T) {
	assert.Equal(t, int64(100), characterCurve.XPToNext(1))
	assert.Equal(t, int64(282), characterCurve.XPToNext(2))
	assert.Equal(t, int64(519), characterCurve.XPToNext(3))
	assert.Equal(t, int64(50), subjectCurve.XPToNext(1))
	assert.Equal(t, int64(174), subjectCurve.XPToNext(2))
	assert.Equal(t, characterCurve.XPToNext(1), characterCurve.XPToNext(0))
}

func TestApply_NoLevelUp(t *testing.T) {
	p := characterCurve.Apply(1, decimal.NewFromInt(40), decimal.NewFromInt(59))
	assert.Equal(t, 1, p.Level)
	assert.True(t, p.XP.Equal(decimal.NewFromInt(99)))
	assert.False(t, p.LeveledUp)
	assert.Equal(t, int64(100), p.XPToNext)
}

func TestApply_ExactThreshold(t *testing.T) {
	p := characterCurve.Apply(1, decimal.Zero, decimal.NewFromInt(100))
	assert.Equal(t, 2, p.Level)
	assert.True(t, p.XP.IsZero())
	assert.True(t, p.LeveledUp)
}

func TestApply_MultipleLevels(t *testing.T) {
	// 100 + 282 + 519 = 901 clears three levels, 99 carries over.
	p := characterCurve.Apply(1, decimal.Zero, decimal.NewFromInt(1000))
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, 3, p.Gained)
	assert.True(t, p.XP.Equal(decimal.NewFromInt(99)), p.XP.String())
	assert.True(t, p.XP.LessThan(decimal.NewFromInt(p.XPToNext)))
}

func TestApply_RemainderAlwaysBelowThreshold(t *testing.T) {
	level, xp := 1, decimal.Zero
	for i := 0; i < 200; i++ {
		p := subjectCurve.Apply(level, xp, decimal.NewFromInt(int64(37*i%211)))
		assert.GreaterOrEqual(t, p.Level, level)
		assert.True(t, p.XP.LessThan(decimal.NewFromInt(subjectCurve.XPToNext(p.Level))))
		level, xp = p.Level, p.XP
	}
}

func TestApply_HugeGain(t *testing.T) {
	gain, _ := decimal.NewFromString("1000000000000")
	p := characterCurve.Apply(1, decimal.Zero, gain)
	assert.Greater(t, p.Level, 1000)
	assert.True(t, p.XP.LessThan(decimal.NewFromInt(p.XPToNext)))
}

func TestApply_NegativeGainIgnored(t *testing.T) {
	p := characterCurve.Apply(3, decimal.NewFromInt(10), decimal.NewFromInt(-50))
	assert.Equal(t, 3, p.Level)
	assert.True(t, p.XP.Equal(decimal.NewFromInt(10)))
}

func TestApplyInt(t *testing.T) {
	level, xp, up := subjectCurve.ApplyInt(1, 45, 10)
	assert.Equal(t, 2, level)
	assert.Equal(t, int64(5), xp)
	assert.True(t, up)
}

func TestWithBonus(t *testing.T) {
	assert.Equal(t, int64(10), WithBonusInt(10))
	assert.Equal(t, int64(11), WithBonusInt(10, 10))
	assert.Equal(t, int64(13), WithBonusInt(10, 10, 20), "bonuses add before multiplying")
	assert.Equal(t, int64(4), WithBonusInt(3, 50), "result is floored")
	assert.True(t, WithBonus(decimal.NewFromInt(7), 3).Equal(decimal.NewFromInt(7)))
}
