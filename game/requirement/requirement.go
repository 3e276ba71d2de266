// Package requirement evaluates the unlock clauses that gate class
// completion, location advancement and specialization selection.
//
// Evaluation is pure: callers pass a Snapshot of the character and get a
// Result listing every clause with its current and required value. A Result
// serves both as a preview and, through Err, as a gate.
package requirement

import (
	"fmt"
	"math"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/shopspring/decimal"
)

type Clause string

const (
	ClauseSubjectLevel    Clause = "subject_level"
	ClauseMinSubjectLevel Clause = "min_subject_level"
	ClauseGradeQuantity   Clause = "grade_quantity"
	ClauseGradeQuality    Clause = "grade_quality"
	ClauseCompletion      Clause = "completion"
	ClauseGradeAverage    Clause = "grade_average"
	ClauseBalance         Clause = "balance"
)

// Grade is the part of a grade record the evaluator reads.
type Grade struct {
	ClassID   string
	SubjectID string
	Score     int
}

// Snapshot is the character state requirements are evaluated against.
type Snapshot struct {
	SubjectLevels map[string]int
	Cash          decimal.Decimal
	Grades        []Grade
}

// Level returns the subject level, 1 when the character has no progress.
func (s Snapshot) Level(subjectID string) int {
	if l, ok := s.SubjectLevels[subjectID]; ok {
		return l
	}
	return 1
}

// Check is one evaluated clause.
type Check struct {
	Clause      Clause          `json:"clause"`
	SubjectID   string          `json:"subject_id,omitempty"`
	SubjectName string          `json:"subject_name,omitempty"`
	Current     decimal.Decimal `json:"current"`
	Required    decimal.Decimal `json:"required"`
	Met         bool            `json:"met"`
	Message     string          `json:"message"`
}

func (c Check) detail() gameerr.Detail {
	return gameerr.Detail{
		Clause:   string(c.Clause),
		Subject:  c.SubjectID,
		Current:  c.Current.String(),
		Required: c.Required.String(),
		Message:  c.Message,
	}
}

// Result is the conjunction of a bundle's clauses. An empty Result is
// satisfied.
type Result struct {
	Checks []Check `json:"checks"`
}

func (r *Result) add(c Check) { r.Checks = append(r.Checks, c) }

// Satisfied reports whether every clause is met.
func (r Result) Satisfied() bool {
	for _, c := range r.Checks {
		if !c.Met {
			return false
		}
	}
	return true
}

// Unmet returns the failing clauses in evaluation order.
func (r Result) Unmet() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Met {
			out = append(out, c)
		}
	}
	return out
}

// Err returns nil when satisfied, otherwise a precondition error carrying
// one detail per unmet clause.
func (r Result) Err(msg string) error {
	unmet := r.Unmet()
	if len(unmet) == 0 {
		return nil
	}
	details := make([]gameerr.Detail, len(unmet))
	for i, c := range unmet {
		details[i] = c.detail()
	}
	return gameerr.Precondition(msg, details...)
}

// RelevantSubjects returns the subjects a class restricts requirements to:
// the class override, else the location's allowed set, else every subject
// the character has progress in.
func RelevantSubjects(cat *catalog.Catalog, cl *catalog.Class, snap Snapshot) []string {
	if len(cl.AllowedSubjects) > 0 {
		return cl.AllowedSubjects
	}
	if loc, ok := cat.Location(cl.LocationID); ok && len(loc.AllowedSubjects) > 0 {
		return loc.AllowedSubjects
	}
	var out []string
	for _, id := range cat.SubjectIDs() {
		if _, ok := snap.SubjectLevels[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// GradeCounts counts a class's grades per subject.
func GradeCounts(grades []Grade, classID string) map[string]int {
	counts := make(map[string]int)
	for _, g := range grades {
		if g.ClassID == classID {
			counts[g.SubjectID]++
		}
	}
	return counts
}

// CompletionPercent recomputes a location's completion from raw grades.
// Per class, collected grades are capped at the class requirement for each
// relevant subject. The result is rounded to two decimals and capped at 100;
// a location with nothing to collect reports 0.
func CompletionPercent(cat *catalog.Catalog, locationID string, snap Snapshot) float64 {
	needed, collected := 0, 0
	for _, cl := range cat.ClassesOf(locationID) {
		subjects := RelevantSubjects(cat, cl, snap)
		needed += cl.RequiredGradesPerSubject * len(subjects)
		counts := GradeCounts(snap.Grades, cl.ID)
		for _, s := range subjects {
			collected += min(counts[s], cl.RequiredGradesPerSubject)
		}
	}
	if needed == 0 {
		return 0
	}
	p := float64(collected) / float64(needed) * 100
	return math.Min(100, math.Round(p*100)/100)
}

// GradeAverage returns the rounded mean over grades earned in classes of
// locations with the given type, or 0 when there are none.
func GradeAverage(cat *catalog.Catalog, t catalog.LocationType, snap Snapshot) int {
	sum, n := 0, 0
	for _, g := range snap.Grades {
		cl, ok := cat.Class(g.ClassID)
		if !ok {
			continue
		}
		loc, ok := cat.Location(cl.LocationID)
		if !ok || loc.Type != t {
			continue
		}
		sum += g.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(sum) / float64(n)))
}

func intCheck(clause Clause, subjectID, name string, current, required int) Check {
	return Check{
		Clause:      clause,
		SubjectID:   subjectID,
		SubjectName: name,
		Current:     decimal.NewFromInt(int64(current)),
		Required:    decimal.NewFromInt(int64(required)),
		Met:         current >= required,
	}
}

// SubjectLevel checks one subject against a minimum level.
func SubjectLevel(cat *catalog.Catalog, snap Snapshot, clause Clause, subjectID string, minLevel int) Check {
	name := cat.SubjectName(subjectID)
	c := intCheck(clause, subjectID, name, snap.Level(subjectID), minLevel)
	c.Message = fmt.Sprintf("%s level %d of %d", name, snap.Level(subjectID), minLevel)
	return c
}

// GradeQuantity checks the number of grades in one subject of a class.
func GradeQuantity(cat *catalog.Catalog, counts map[string]int, subjectID string, required int) Check {
	name := cat.SubjectName(subjectID)
	c := intCheck(ClauseGradeQuantity, subjectID, name, counts[subjectID], required)
	c.Message = fmt.Sprintf("need %d more grades in %s", max(0, required-counts[subjectID]), name)
	return c
}

// GradeQuality checks the number of grades of at least MinScore in a class.
func GradeQuality(cat *catalog.Catalog, snap Snapshot, classID string, q catalog.GradeQuality) Check {
	have := 0
	for _, g := range snap.Grades {
		if g.ClassID == classID && g.SubjectID == q.SubjectID && g.Score >= q.MinScore {
			have++
		}
	}
	name := cat.SubjectName(q.SubjectID)
	c := intCheck(ClauseGradeQuality, q.SubjectID, name, have, q.Count)
	c.Message = fmt.Sprintf("need %d more %s grades of %d or higher", max(0, q.Count-have), name, q.MinScore)
	return c
}

// Completion checks a location's fresh completion percentage.
func Completion(cat *catalog.Catalog, snap Snapshot, locationID string, requiredPercent float64) Check {
	p := CompletionPercent(cat, locationID, snap)
	name := locationID
	if loc, ok := cat.Location(locationID); ok {
		name = loc.Name
	}
	return Check{
		Clause:   ClauseCompletion,
		Current:  decimal.NewFromFloat(p),
		Required: decimal.NewFromFloat(requiredPercent),
		Met:      p >= requiredPercent,
		Message:  fmt.Sprintf("need %g%% progress in %s (current: %g%%)", requiredPercent, name, p),
	}
}

// Average checks the grade average over a location type.
func Average(cat *catalog.Catalog, snap Snapshot, t catalog.LocationType, minAverage int) Check {
	avg := GradeAverage(cat, t, snap)
	c := intCheck(ClauseGradeAverage, "", "", avg, minAverage)
	c.Message = fmt.Sprintf("grade average %d of %d", avg, minAverage)
	return c
}

// Balance checks that the character can pay cost.
func Balance(snap Snapshot, cost decimal.Decimal) Check {
	return Check{
		Clause:   ClauseBalance,
		Current:  snap.Cash,
		Required: cost,
		Met:      snap.Cash.GreaterThanOrEqual(cost),
		Message:  fmt.Sprintf("need %s more cash", decimal.Max(decimal.Zero, cost.Sub(snap.Cash))),
	}
}
