// Package grade generates grade scores and renders them in the supported
// grading systems.
package grade

import (
	"math"
	"sort"
	"strconv"

	"github.com/kasuganosora/scholarquest/config"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
)

// Generate returns round(min(100, base + level*LevelBonus + bonus)) where
// base is uniform in [BaseMin, BaseMax]. The result is clamped to [0, 100].
func Generate(r dice.Roller, subjectLevel, bonus int, cfg config.GradeConfig) int {
	base := r.Between(cfg.BaseMin, cfg.BaseMax)
	score := math.Min(100, float64(base)+float64(subjectLevel)*cfg.LevelBonus+float64(bonus))
	return Clamp(int(math.Round(score)))
}

// Clamp bounds a score to [0, 100].
func Clamp(score int) int {
	return max(0, min(100, score))
}

type System string

const (
	Letter      System = "letter"
	FivePoint   System = "five_point"
	TwelvePoint System = "twelve_point"
)

// ParseSystem validates a grading system name. Empty selects Letter.
func ParseSystem(s string) (System, error) {
	switch System(s) {
	case "":
		return Letter, nil
	case Letter, FivePoint, TwelvePoint:
		return System(s), nil
	}
	return "", gameerr.Invalid("unknown grade system %q", s)
}

type threshold struct {
	min   int
	label string
}

var (
	letterScale = []threshold{{90, "A"}, {75, "B"}, {60, "C"}, {40, "D"}}
	fiveScale   = []threshold{{90, "5"}, {75, "4"}, {60, "3"}, {40, "2"}}
	twelveScale = []threshold{
		{97, "12"}, {93, "11"}, {90, "10"}, {85, "9"}, {80, "8"}, {75, "7"},
		{68, "6"}, {60, "5"}, {52, "4"}, {44, "3"}, {36, "2"},
	}
)

// Format renders a 0-100 score in the given system.
func Format(score int, system System) string {
	scale, floor := letterScale, "F"
	switch system {
	case FivePoint:
		scale, floor = fiveScale, "1"
	case TwelvePoint:
		scale, floor = twelveScale, "1"
	}
	for _, t := range scale {
		if score >= t.min {
			return t.label
		}
	}
	return floor
}

// Scored is anything carrying a subject and a score.
type Scored interface {
	GradeSubject() string
	GradeScore() int
}

// SubjectStats summarises the grades of one subject.
type SubjectStats struct {
	SubjectID string `json:"subject_id"`
	Count     int    `json:"count"`
	Average   int    `json:"average"`
	Best      int    `json:"best"`
	Worst     int    `json:"worst"`
}

// Average returns the rounded mean score, or 0 for no grades.
func Average(scores []int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

// Stats groups grades by subject, ordered by subject ID.
func Stats[G Scored](grades []G) []SubjectStats {
	bySubject := make(map[string][]int)
	for _, g := range grades {
		bySubject[g.GradeSubject()] = append(bySubject[g.GradeSubject()], g.GradeScore())
	}
	out := make([]SubjectStats, 0, len(bySubject))
	for id, scores := range bySubject {
		st := SubjectStats{SubjectID: id, Count: len(scores), Average: Average(scores), Best: scores[0], Worst: scores[0]}
		for _, s := range scores[1:] {
			st.Best = max(st.Best, s)
			st.Worst = min(st.Worst, s)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out
}

// Label renders a score with its letter, e.g. "87/B", for log fields.
func Label(score int) string {
	return strconv.Itoa(score) + "/" + Format(score, Letter)
}
