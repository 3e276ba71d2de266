package academy

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/clock"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/requirement"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/kasuganosora/scholarquest/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	chars *character.Service
	svc   *Service
	char  *model.Character
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clk := clock.NewManual(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	chars := character.NewService(db, testutil.Catalog(t), clk, testutil.GameConfig(), testutil.Logger())
	c, err := chars.Create(context.Background(), "Pupil")
	require.NoError(t, err)
	return &fixture{db: db, chars: chars, svc: NewService(db, chars, audit.Nop{}, testutil.Logger()), char: c}
}

func (f *fixture) grades(t *testing.T, classID, subjectID string, n, score int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.db.Create(&model.Grade{CharID: f.char.ID, ClassID: classID, SubjectID: subjectID, Score: score}).Error)
	}
}

func (f *fixture) levels(t *testing.T, lv map[string]int) {
	t.Helper()
	for s, l := range lv {
		require.NoError(t, f.db.Model(&model.SubjectProgress{}).
			Where("char_id = ? AND subject_id = ?", f.char.ID, s).Update("level", l).Error)
	}
}

func (f *fixture) place(t *testing.T, locationID string, classID *string) {
	t.Helper()
	require.NoError(t, f.db.Model(&model.Character{}).Where("id = ?", f.char.ID).
		Updates(map[string]any{"location_id": locationID, "class_id": classID}).Error)
}

func (f *fixture) reload(t *testing.T) *model.Character {
	t.Helper()
	c, err := f.chars.Load(f.db, f.char.ID)
	require.NoError(t, err)
	return c
}

func ptr(s string) *string { return &s }

func TestCompleteClass_MissingGrades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grades(t, "prep-class-1", "mathematics", 2, 60)

	_, err := f.svc.CompleteClass(ctx, f.char.ID)
	require.ErrorIs(t, err, gameerr.ErrPrecondition)
	details := gameerr.DetailsOf(err)
	require.Len(t, details, 2)
	assert.Equal(t, "need 3 more grades in Mathematics", details[0].Message)
	assert.Equal(t, "need 5 more grades in Literature", details[1].Message)

	c := f.reload(t)
	assert.Equal(t, "prep-class-1", *c.ClassID, "no state change on failure")
	var n int64
	f.db.Model(&model.LocationProgress{}).Count(&n)
	assert.Zero(t, n)
}

func TestCompleteClass_LastClassOfLocation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grades(t, "prep-class-1", "mathematics", 5, 60)
	f.grades(t, "prep-class-1", "literature", 6, 60)
	require.NoError(t, f.db.Model(&model.Character{}).Where("id = ?", f.char.ID).Update("class_study_clicks", 7).Error)

	res, err := f.svc.CompleteClass(ctx, f.char.ID)
	require.NoError(t, err)
	assert.Equal(t, "prep-class-1", res.CompletedClassID)
	assert.Equal(t, 100.0, res.LocationPercent)
	assert.Nil(t, res.NextClassID)
	assert.True(t, res.LocationCompleted)

	c := f.reload(t)
	assert.Nil(t, c.ClassID)
	assert.Zero(t, c.ClassStudyClicks)

	var lp model.LocationProgress
	require.NoError(t, f.db.Where("char_id = ? AND location_id = ?", c.ID, "prep-school").First(&lp).Error)
	assert.Equal(t, 100.0, lp.CompletionPercent)
	assert.True(t, lp.IsCompleted)

	_, err = f.svc.CompleteClass(ctx, f.char.ID)
	assert.ErrorIs(t, err, gameerr.ErrPrecondition, "no current class")
}

func TestCompleteClass_CachedPercentIsClassCount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.place(t, "school", ptr("school-class-1"))
	basic := []string{"mathematics", "literature", "physical-education", "art"}
	lv := map[string]int{}
	for _, s := range basic {
		f.grades(t, "school-class-1", s, 5, 70)
		lv[s] = 5
	}

	_, err := f.svc.CompleteClass(ctx, f.char.ID)
	require.ErrorIs(t, err, gameerr.ErrPrecondition, "levels below class minimum")
	assert.Len(t, gameerr.DetailsOf(err), 4)

	f.levels(t, lv)
	res, err := f.svc.CompleteClass(ctx, f.char.ID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/11, res.LocationPercent, 1e-9)
	require.NotNil(t, res.NextClassID)
	assert.Equal(t, "school-class-2", *res.NextClassID)

	c := f.reload(t)
	snap, err := f.chars.Snapshot(f.db, c)
	require.NoError(t, err)
	fresh := requirement.CompletionPercent(f.chars.Catalog(), "school", snap)
	assert.Equal(t, 4.82, fresh, "gating percentage counts grades, not classes")

	// The next class starts with no grades.
	_, err = f.svc.CompleteClass(ctx, f.char.ID)
	require.Error(t, err)
}

func TestAdvanceLocation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.grades(t, "prep-class-1", "mathematics", 5, 60)
	f.grades(t, "prep-class-1", "literature", 5, 60)

	_, err := f.svc.AdvanceLocation(ctx, f.char.ID)
	require.ErrorIs(t, err, gameerr.ErrPrecondition)
	assert.Len(t, gameerr.DetailsOf(err), 2)

	f.levels(t, map[string]int{"mathematics": 4, "literature": 5})
	res, err := f.svc.AdvanceLocation(ctx, f.char.ID)
	require.NoError(t, err)
	assert.Equal(t, "prep-school", res.PreviousLocationID)
	assert.Equal(t, "school", res.LocationID)
	require.NotNil(t, res.ClassID)
	assert.Equal(t, "school-class-1", *res.ClassID)

	c := f.reload(t)
	assert.Equal(t, "school", c.LocationID)
	assert.Equal(t, "school-class-1", *c.ClassID)
}

func TestAdvanceLocation_EndOfPath(t *testing.T) {
	f := setup(t)
	f.place(t, "university", nil)
	_, err := f.svc.AdvanceLocation(context.Background(), f.char.ID)
	assert.ErrorIs(t, err, gameerr.ErrPrecondition)
}

func TestAdvanceLocation_ToLocationWithoutClasses(t *testing.T) {
	f := setup(t)
	f.place(t, "school", nil)
	// 60% of 415 school grades is 249: fill classes 5-10 (6 * 45 = 270).
	for g := 5; g <= 10; g++ {
		for _, s := range f.chars.Catalog().SubjectIDs() {
			f.grades(t, "school-class-"+strconv.Itoa(g), s, 5, 50)
		}
	}
	res, err := f.svc.AdvanceLocation(context.Background(), f.char.ID)
	require.NoError(t, err)
	assert.Equal(t, "college", res.LocationID)
	assert.Nil(t, res.ClassID)
}

func collegeReady(t *testing.T, f *fixture, cash int64) {
	t.Helper()
	f.place(t, "college", nil)
	f.levels(t, map[string]int{"art": 20, "literature": 15})
	f.grades(t, "school-class-3", "art", 4, 65)
	require.NoError(t, f.chars.CreditCash(f.db, f.char.ID, decimal.NewFromInt(cash)))
}

func TestSelectSpecialization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	collegeReady(t, f, 1600)

	res, err := f.svc.SelectSpecialization(ctx, f.char.ID, "spec-arts-design")
	require.NoError(t, err)
	assert.True(t, res.Cost.Equal(decimal.NewFromInt(1500)))
	assert.True(t, res.Cash.Equal(decimal.NewFromInt(100)))

	c := f.reload(t)
	require.NotNil(t, c.SpecializationID)
	assert.Equal(t, "spec-arts-design", *c.SpecializationID)
	assert.True(t, c.Cash.Equal(decimal.NewFromInt(100)))

	_, err = f.svc.SelectSpecialization(ctx, f.char.ID, "spec-business")
	assert.ErrorIs(t, err, gameerr.ErrConflict, "irrevocable")
}

func TestSelectSpecialization_Rejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.SelectSpecialization(ctx, f.char.ID, "spec-astrology")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)

	_, err = f.svc.SelectSpecialization(ctx, f.char.ID, "spec-arts-design")
	assert.ErrorIs(t, err, gameerr.ErrPrecondition, "not at college")

	collegeReady(t, f, 1000)
	_, err = f.svc.SelectSpecialization(ctx, f.char.ID, "spec-arts-design")
	require.ErrorIs(t, err, gameerr.ErrPrecondition)
	details := gameerr.DetailsOf(err)
	require.Len(t, details, 1)
	assert.Equal(t, "balance", details[0].Clause)

	c := f.reload(t)
	assert.Nil(t, c.SpecializationID)
	assert.True(t, c.Cash.Equal(decimal.NewFromInt(1000)), "no debit on failure")
}

func TestPreviews(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r, err := f.svc.ClassRequirements(ctx, f.char.ID)
	require.NoError(t, err)
	assert.Len(t, r.Checks, 2)
	assert.False(t, r.Satisfied())

	r, err = f.svc.LocationRequirements(ctx, f.char.ID)
	require.NoError(t, err)
	assert.Len(t, r.Checks, 3)

	collegeReady(t, f, 5000)
	p, err := f.svc.Specializations(ctx, f.char.ID)
	require.NoError(t, err)
	assert.Nil(t, p.Current)
	require.Len(t, p.Options, 6)
	available := 0
	for _, o := range p.Options {
		if o.Available {
			available++
			assert.Equal(t, "spec-arts-design", o.Specialization.ID)
		}
	}
	assert.Equal(t, 1, available)

	_, err = f.svc.ClassRequirements(ctx, f.char.ID)
	assert.ErrorIs(t, err, gameerr.ErrPrecondition)
}
