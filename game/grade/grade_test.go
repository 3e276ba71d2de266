package grade

import (
	"testing"

	"github.com/kasuganosora/scholarquest/config"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = config.GradeConfig{BaseMin: 30, BaseMax: 85, LevelBonus: 0.3}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		roll  int
		level int
		bonus int
		want  int
	}{
		{"minimum roll level 1", 30, 1, 0, 30},
		{"level bonus rounds", 50, 4, 0, 51},
		{"fraction rounds up", 50, 2, 0, 51},
		{"equipment bonus", 60, 10, 4, 67},
		{"capped at 100", 85, 100, 10, 100},
		{"negative bonus floors at 0", 30, 1, -500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(&dice.Stub{Rolls: []int{tt.roll}}, tt.level, tt.bonus, cfg)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_AlwaysInRange(t *testing.T) {
	r := dice.NewSeeded(7)
	for i := 0; i < 500; i++ {
		s := Generate(r, i%120, i%12, cfg)
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		score  int
		system System
		want   string
	}{
		{95, Letter, "A"}, {90, Letter, "A"}, {89, Letter, "B"}, {60, Letter, "C"},
		{40, Letter, "D"}, {39, Letter, "F"},
		{90, FivePoint, "5"}, {75, FivePoint, "4"}, {61, FivePoint, "3"}, {40, FivePoint, "2"}, {0, FivePoint, "1"},
		{100, TwelvePoint, "12"}, {93, TwelvePoint, "11"}, {85, TwelvePoint, "9"}, {68, TwelvePoint, "6"},
		{52, TwelvePoint, "4"}, {36, TwelvePoint, "2"}, {35, TwelvePoint, "1"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Format(c.score, c.system), "%d in %s", c.score, c.system)
	}
}

func TestParseSystem(t *testing.T) {
	s, err := ParseSystem("")
	require.NoError(t, err)
	assert.Equal(t, Letter, s)

	s, err = ParseSystem("twelve_point")
	require.NoError(t, err)
	assert.Equal(t, TwelvePoint, s)

	_, err = ParseSystem("gpa")
	assert.ErrorIs(t, err, gameerr.ErrInvalid)
}

type g struct {
	subject string
	score   int
}

func (x g) GradeSubject() string { return x.subject }
func (x g) GradeScore() int      { return x.score }

func TestStats(t *testing.T) {
	stats := Stats([]g{{"math", 80}, {"lit", 50}, {"math", 91}, {"math", 70}})
	require.Len(t, stats, 2)
	assert.Equal(t, SubjectStats{SubjectID: "lit", Count: 1, Average: 50, Best: 50, Worst: 50}, stats[0])
	assert.Equal(t, SubjectStats{SubjectID: "math", Count: 3, Average: 80, Best: 91, Worst: 70}, stats[1])
}

func TestAverage(t *testing.T) {
	assert.Equal(t, 0, Average(nil))
	assert.Equal(t, 73, Average([]int{72, 73}), "72.5 rounds up")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "87/B", Label(87))
	assert.Equal(t, "95/A", Label(95))
	assert.Equal(t, "12/F", Label(12))
}
