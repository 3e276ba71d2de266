package energy

import (
	"testing"
	"time"

	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

func studyPool(value int) Pool {
	return Pool{Value: value, Max: 100, LastRegen: t0, Interval: 3 * time.Minute}
}

func TestRegen_NoElapsedInterval(t *testing.T) {
	p := studyPool(10)
	got := Regen(p, t0.Add(2*time.Minute+59*time.Second))
	assert.Equal(t, p, got)
}

func TestRegen_KeepsFractionalProgress(t *testing.T) {
	p := studyPool(10)
	got := Regen(p, t0.Add(7*time.Minute))
	assert.Equal(t, 12, got.Value)
	assert.Equal(t, t0.Add(6*time.Minute), got.LastRegen, "lastRegen must advance by whole intervals only")

	// The remaining minute still counts toward the next unit.
	got = Regen(got, t0.Add(9*time.Minute))
	assert.Equal(t, 13, got.Value)
	assert.Equal(t, t0.Add(9*time.Minute), got.LastRegen)
}

func TestRegen_Idempotent(t *testing.T) {
	now := t0.Add(47 * time.Minute)
	once := Regen(studyPool(5), now)
	twice := Regen(once, now)
	assert.Equal(t, once, twice)
}

func TestRegen_CapsAtMax(t *testing.T) {
	got := Regen(studyPool(95), t0.Add(24*time.Hour))
	assert.Equal(t, 100, got.Value)
	assert.Equal(t, t0.Add(24*time.Hour), got.LastRegen)
	assert.Zero(t, got.LastRegen.Sub(t0)%(3*time.Minute))
}

func TestRegen_Monotonic(t *testing.T) {
	p := studyPool(0)
	prev := p.Value
	for m := 0; m <= 400; m += 7 {
		p = Regen(p, t0.Add(time.Duration(m)*time.Minute))
		assert.GreaterOrEqual(t, p.Value, prev)
		assert.LessOrEqual(t, p.Value, p.Max)
		prev = p.Value
	}
}

func TestSpend_RegensBeforeCheck(t *testing.T) {
	p := studyPool(4)
	got, err := Spend(p, 5, t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, got.Value)
	assert.Equal(t, t0.Add(3*time.Minute), got.LastRegen)
}

func TestSpend_Insufficient(t *testing.T) {
	_, err := Spend(studyPool(2), 5, t0)
	require.Error(t, err)
	assert.ErrorIs(t, err, gameerr.ErrPrecondition)
	d := gameerr.DetailsOf(err)
	require.Len(t, d, 1)
	assert.Equal(t, "2", d[0].Current)
	assert.Equal(t, "5", d[0].Required)
}

func TestSpend_NegativeCost(t *testing.T) {
	_, err := Spend(studyPool(2), -1, t0)
	assert.ErrorIs(t, err, gameerr.ErrInvalid)
}

func TestAddAndRefill(t *testing.T) {
	p := Add(studyPool(95), 10)
	assert.Equal(t, 100, p.Value)

	now := t0.Add(time.Hour)
	p = Refill(studyPool(3), now)
	assert.Equal(t, 100, p.Value)
	assert.Equal(t, now, p.LastRegen)
}

func TestNextUnitAt(t *testing.T) {
	assert.Equal(t, t0.Add(3*time.Minute), NextUnitAt(studyPool(1)))
	assert.True(t, NextUnitAt(studyPool(100)).IsZero())
}

func TestCountdown(t *testing.T) {
	p := studyPool(1)
	assert.Equal(t, 3*time.Minute, Countdown(p, t0))
	assert.Equal(t, 90*time.Second, Countdown(p, t0.Add(90*time.Second)))
	assert.Zero(t, Countdown(p, t0.Add(5*time.Minute)))
	assert.Zero(t, Countdown(studyPool(100), t0))
}

func TestFormatCountdown(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-time.Second, "0:00"},
		{500 * time.Millisecond, "0:01"},
		{59 * time.Second, "0:59"},
		{3 * time.Minute, "3:00"},
		{time.Hour + 2*time.Minute + 5*time.Second, "1:02:05"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatCountdown(c.d), c.d.String())
	}
}
