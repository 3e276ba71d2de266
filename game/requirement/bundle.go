package requirement

import (
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/shopspring/decimal"
)

// ForClass evaluates completion of a class: enough grades in every relevant
// subject, plus the class's optional level and grade-quality clauses. A
// subject-specific level overrides the class-wide minimum for that subject.
func ForClass(cat *catalog.Catalog, snap Snapshot, cl *catalog.Class) Result {
	var r Result
	subjects := RelevantSubjects(cat, cl, snap)
	counts := GradeCounts(snap.Grades, cl.ID)
	for _, s := range subjects {
		r.add(GradeQuantity(cat, counts, s, cl.RequiredGradesPerSubject))
	}

	req := cl.Requirements
	if req == nil {
		return r
	}
	specific := make(map[string]int, len(req.SubjectLevels))
	for _, sl := range req.SubjectLevels {
		specific[sl.SubjectID] = sl.MinLevel
	}
	for _, s := range subjects {
		if lvl, ok := specific[s]; ok {
			r.add(SubjectLevel(cat, snap, ClauseSubjectLevel, s, lvl))
			delete(specific, s)
			continue
		}
		if req.MinSubjectLevel > 0 {
			r.add(SubjectLevel(cat, snap, ClauseMinSubjectLevel, s, req.MinSubjectLevel))
		}
	}
	// Subject-specific levels outside the relevant set still apply.
	for _, sl := range req.SubjectLevels {
		if _, pending := specific[sl.SubjectID]; pending {
			r.add(SubjectLevel(cat, snap, ClauseSubjectLevel, sl.SubjectID, sl.MinLevel))
		}
	}
	for _, q := range req.GradeQuality {
		r.add(GradeQuality(cat, snap, cl.ID, q))
	}
	return r
}

// ForLocation evaluates entry into next from currentLocationID: the fresh
// completion percentage of the previous location and the required subject
// levels.
func ForLocation(cat *catalog.Catalog, snap Snapshot, currentLocationID string, next *catalog.Location) Result {
	var r Result
	prev := currentLocationID
	if next.Unlock != nil && next.Unlock.PreviousLocationID != "" {
		prev = next.Unlock.PreviousLocationID
	}
	r.add(Completion(cat, snap, prev, next.Unlock.RequiredPercent()))
	if next.Unlock != nil {
		for _, sl := range next.Unlock.SubjectLevels {
			r.add(SubjectLevel(cat, snap, ClauseSubjectLevel, sl.SubjectID, sl.MinLevel))
		}
	}
	return r
}

// ForSpecialization evaluates subject levels, the grade average over the
// assessment location type, and the unlock cost.
func ForSpecialization(cat *catalog.Catalog, snap Snapshot, spec *catalog.Specialization) Result {
	var r Result
	for _, sl := range spec.SubjectLevels {
		r.add(SubjectLevel(cat, snap, ClauseSubjectLevel, sl.SubjectID, sl.MinLevel))
	}
	if spec.MinGradeAverage > 0 {
		r.add(Average(cat, snap, spec.AssessmentType, spec.MinGradeAverage))
	}
	if spec.UnlockCost > 0 {
		r.add(Balance(snap, decimal.NewFromInt(spec.UnlockCost)))
	}
	return r
}
