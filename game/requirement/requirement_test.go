package requirement

import (
	"testing"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func levels(cat *catalog.Catalog, lvl int) map[string]int {
	out := make(map[string]int)
	for _, id := range cat.SubjectIDs() {
		out[id] = lvl
	}
	return out
}

func grades(classID, subjectID string, scores ...int) []Grade {
	out := make([]Grade, len(scores))
	for i, s := range scores {
		out[i] = Grade{ClassID: classID, SubjectID: subjectID, Score: s}
	}
	return out
}

func fullClass(cat *catalog.Catalog, snap Snapshot, classID string, score int) []Grade {
	cl, _ := cat.Class(classID)
	var out []Grade
	for _, s := range RelevantSubjects(cat, cl, snap) {
		for i := 0; i < cl.RequiredGradesPerSubject; i++ {
			out = append(out, Grade{ClassID: classID, SubjectID: s, Score: score})
		}
	}
	return out
}

func TestRelevantSubjects(t *testing.T) {
	cat := testutil.Catalog(t)
	snap := Snapshot{SubjectLevels: map[string]int{"mathematics": 1, "art": 1}}

	prep, _ := cat.Class("prep-class-1")
	assert.Equal(t, []string{"mathematics", "literature"}, RelevantSubjects(cat, prep, snap), "location set")

	c1, _ := cat.Class("school-class-1")
	assert.Len(t, RelevantSubjects(cat, c1, snap), 4, "class override")

	c5, _ := cat.Class("school-class-5")
	assert.Equal(t, []string{"mathematics", "art"}, RelevantSubjects(cat, c5, snap), "subjects with progress")
}

func TestCompletionPercent(t *testing.T) {
	cat := testutil.Catalog(t)
	snap := Snapshot{SubjectLevels: levels(cat, 1)}

	assert.Zero(t, CompletionPercent(cat, "prep-school", snap))
	assert.Zero(t, CompletionPercent(cat, "college", snap), "no classes")

	// Extra literature grades are capped at the requirement.
	snap.Grades = append(grades("prep-class-1", "mathematics", 50, 50, 50),
		grades("prep-class-1", "literature", 1, 2, 3, 4, 5, 6, 7)...)
	assert.Equal(t, 80.0, CompletionPercent(cat, "prep-school", snap))

	snap.Grades = append(snap.Grades, grades("prep-class-1", "mathematics", 1, 1)...)
	assert.Equal(t, 100.0, CompletionPercent(cat, "prep-school", snap))
}

func TestCompletionPercent_RoundsToTwoDecimals(t *testing.T) {
	cat := testutil.Catalog(t)
	// School needs 2*20 + 2*30 + 7*45 = 415 grades with all nine subjects.
	snap := Snapshot{SubjectLevels: levels(cat, 1), Grades: grades("school-class-1", "art", 90)}
	assert.Equal(t, 0.24, CompletionPercent(cat, "school", snap))
}

func TestCompletionPercent_Monotonic(t *testing.T) {
	cat := testutil.Catalog(t)
	snap := Snapshot{SubjectLevels: levels(cat, 1)}
	prev := 0.0
	for _, g := range fullClass(cat, snap, "school-class-3", 60) {
		snap.Grades = append(snap.Grades, g, g)
		p := CompletionPercent(cat, "school", snap)
		assert.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestForClass_GradeQuantity(t *testing.T) {
	cat := testutil.Catalog(t)
	prep, _ := cat.Class("prep-class-1")
	snap := Snapshot{
		SubjectLevels: levels(cat, 1),
		Grades:        append(grades("prep-class-1", "mathematics", 1, 1, 1, 1, 1), grades("prep-class-1", "literature", 1, 1)...),
	}

	r := ForClass(cat, snap, prep)
	require.False(t, r.Satisfied())
	unmet := r.Unmet()
	require.Len(t, unmet, 1)
	assert.Equal(t, ClauseGradeQuantity, unmet[0].Clause)
	assert.Equal(t, "literature", unmet[0].SubjectID)
	assert.Equal(t, "need 3 more grades in Literature", unmet[0].Message)

	err := r.Err("class not complete")
	require.Error(t, err)
	assert.ErrorIs(t, err, gameerr.ErrPrecondition)
	assert.Len(t, gameerr.DetailsOf(err), 1)
}

func TestForClass_LevelsAndQuality(t *testing.T) {
	cat := testutil.Catalog(t)
	c5, _ := cat.Class("school-class-5")
	snap := Snapshot{SubjectLevels: levels(cat, 13)}
	snap.Grades = fullClass(cat, snap, "school-class-5", 40)

	r := ForClass(cat, snap, c5)
	unmet := r.Unmet()
	require.Len(t, unmet, 1)
	assert.Equal(t, ClauseGradeQuality, unmet[0].Clause)
	assert.True(t, unmet[0].Current.IsZero())

	// Quality grades from another class do not count.
	snap.Grades = append(snap.Grades, grades("school-class-4", "mathematics", 99, 99)...)
	assert.False(t, ForClass(cat, snap, c5).Satisfied())

	snap.Grades = append(snap.Grades, grades("school-class-5", "mathematics", 70, 88)...)
	assert.True(t, ForClass(cat, snap, c5).Satisfied())

	snap.SubjectLevels["physics"] = 12
	unmet = ForClass(cat, snap, c5).Unmet()
	require.Len(t, unmet, 1)
	assert.Equal(t, ClauseMinSubjectLevel, unmet[0].Clause)
	assert.Equal(t, "physics", unmet[0].SubjectID)
}

func TestForClass_SpecificLevelOverridesMinimum(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
subjects: [{id: math, name: Math}, {id: lit, name: Lit}, {id: art, name: Art}]
locations: [{id: l, name: L, type: school, order: 0, allowed_subjects: [math, lit]}]
classes:
  - id: k
    location: l
    grade: 1
    required_grades_per_subject: 0
    requirements:
      min_subject_level: 5
      subject_levels: [{subject: math, min_level: 2}, {subject: art, min_level: 3}]
`))
	require.NoError(t, err)
	cl, _ := cat.Class("k")

	snap := Snapshot{SubjectLevels: map[string]int{"math": 3, "lit": 5, "art": 3}}
	assert.True(t, ForClass(cat, snap, cl).Satisfied())

	snap.SubjectLevels["art"] = 2
	unmet := ForClass(cat, snap, cl).Unmet()
	require.Len(t, unmet, 1)
	assert.Equal(t, "art", unmet[0].SubjectID)
}

func TestForClass_NoRequirementsIsVacuous(t *testing.T) {
	cat := testutil.Catalog(t)
	prep, _ := cat.Class("prep-class-1")
	snap := Snapshot{SubjectLevels: levels(cat, 1)}
	snap.Grades = fullClass(cat, snap, "prep-class-1", 0)
	assert.True(t, ForClass(cat, snap, prep).Satisfied())
}

func TestForLocation(t *testing.T) {
	cat := testutil.Catalog(t)
	school, _ := cat.Location("school")
	snap := Snapshot{SubjectLevels: levels(cat, 1)}

	r := ForLocation(cat, snap, "prep-school", school)
	unmet := r.Unmet()
	require.Len(t, unmet, 3)
	assert.Equal(t, ClauseCompletion, unmet[0].Clause)
	assert.Equal(t, "need 100% progress in Prep School (current: 0%)", unmet[0].Message)

	snap.Grades = fullClass(cat, snap, "prep-class-1", 50)
	snap.SubjectLevels["mathematics"] = 4
	snap.SubjectLevels["literature"] = 5
	assert.True(t, ForLocation(cat, snap, "prep-school", school).Satisfied())
}

func TestForSpecialization(t *testing.T) {
	cat := testutil.Catalog(t)
	spec, _ := cat.Specialization("spec-arts-design")
	snap := Snapshot{SubjectLevels: levels(cat, 20), Cash: decimal.NewFromInt(1000)}
	snap.Grades = append(grades("school-class-1", "art", 50, 70), grades("prep-class-1", "art", 0)...)

	r := ForSpecialization(cat, snap, spec)
	unmet := r.Unmet()
	require.Len(t, unmet, 1)
	assert.Equal(t, ClauseBalance, unmet[0].Clause)
	assert.Equal(t, "need 500 more cash", unmet[0].Message)

	snap.Cash = decimal.NewFromInt(1500)
	assert.True(t, ForSpecialization(cat, snap, spec).Satisfied(), "prep grades are not assessed")

	snap.Grades = append(snap.Grades, grades("school-class-2", "art", 10)...)
	unmet = ForSpecialization(cat, snap, spec).Unmet()
	require.Len(t, unmet, 1)
	assert.Equal(t, ClauseGradeAverage, unmet[0].Clause)
	assert.Equal(t, int64(43), unmet[0].Current.IntPart())
}

func TestSnapshotLevelDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, Snapshot{}.Level("anything"))
}
