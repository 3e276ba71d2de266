package character

import (
	"context"
	"testing"
	"time"

	"github.com/kasuganosora/scholarquest/game/clock"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/grade"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/kasuganosora/scholarquest/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *gorm.DB, *clock.Manual) {
	db := testutil.SetupTestDB(t)
	clk := clock.NewManual(start)
	return NewService(db, testutil.Catalog(t), clk, testutil.GameConfig(), testutil.Logger()), db, clk
}

func TestCreate(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "  Ada ")
	require.NoError(t, err)

	assert.Equal(t, "Ada", c.Name)
	assert.Equal(t, 1, c.Level)
	assert.Equal(t, "prep-school", c.LocationID)
	require.NotNil(t, c.ClassID)
	assert.Equal(t, "prep-class-1", *c.ClassID)
	assert.Equal(t, 100, c.StudyEnergy)
	assert.Equal(t, 50, c.OlympiadEnergy)
	assert.True(t, c.Cash.IsZero())

	subjects, err := svc.Subjects(db, c.ID)
	require.NoError(t, err)
	require.Len(t, subjects, 9)
	assert.Equal(t, "mathematics", subjects[0].SubjectID)
	for _, s := range subjects {
		assert.Equal(t, 1, s.Level)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, "   ")
	assert.ErrorIs(t, err, gameerr.ErrInvalid)

	_, err = svc.Create(ctx, "Bob")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Bob")
	assert.ErrorIs(t, err, gameerr.ErrConflict)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestGet_RegeneratesAndPersists(t *testing.T) {
	svc, db, clk := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "Cy")
	require.NoError(t, err)
	require.NoError(t, svc.Spend(db, c, StudyPool, 30))
	require.NoError(t, svc.Spend(db, c, OlympiadPool, 10))

	clk.Advance(31 * time.Minute)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, got.StudyEnergy)
	assert.Equal(t, 43, got.OlympiadEnergy)
	assert.True(t, got.StudyRegenAt.Equal(start.Add(30*time.Minute)))

	var stored model.Character
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, 80, stored.StudyEnergy)
	assert.Equal(t, 43, stored.OlympiadEnergy)
}

func TestSpend_Insufficient(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Dee")
	require.NoError(t, err)

	err = svc.Spend(db, c, OlympiadPool, 51)
	assert.ErrorIs(t, err, gameerr.ErrPrecondition)
	assert.Equal(t, 50, c.OlympiadEnergy)
}

func TestSpend_StaleRecordConflicts(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Eve")
	require.NoError(t, err)
	stale := *c

	require.NoError(t, svc.Spend(db, c, StudyPool, 60))
	err = svc.Spend(db, &stale, StudyPool, 60)
	assert.ErrorIs(t, err, gameerr.ErrConflict)

	var stored model.Character
	require.NoError(t, db.First(&stored, c.ID).Error)
	assert.Equal(t, 40, stored.StudyEnergy)
}

func TestRefillAndAddEnergy(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Fay")
	require.NoError(t, err)
	require.NoError(t, svc.Spend(db, c, StudyPool, 50))

	require.NoError(t, svc.AddEnergy(db, c, StudyPool, 10))
	assert.Equal(t, 60, c.StudyEnergy)
	require.NoError(t, svc.Refill(db, c, StudyPool))
	assert.Equal(t, 100, c.StudyEnergy)
}

func TestCash(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Gus")
	require.NoError(t, err)

	require.NoError(t, svc.CreditCash(db, c.ID, decimal.NewFromInt(300)))
	require.NoError(t, svc.DebitCash(db, c.ID, decimal.NewFromInt(120)))

	err = svc.DebitCash(db, c.ID, decimal.NewFromInt(181))
	require.ErrorIs(t, err, gameerr.ErrPrecondition)
	d := gameerr.DetailsOf(err)
	require.Len(t, d, 1)
	assert.Equal(t, "180", d[0].Current)

	stored, err := svc.Load(db, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cash.Equal(decimal.NewFromInt(180)), stored.Cash.String())

	assert.ErrorIs(t, svc.DebitCash(db, c.ID, decimal.NewFromInt(-1)), gameerr.ErrInvalid)
	assert.ErrorIs(t, svc.CreditCash(db, 999, decimal.NewFromInt(1)), gameerr.ErrNotFound)
}

func TestCash_BoundedByInt64(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Ivy")
	require.NoError(t, err)

	huge := decimal.RequireFromString("1e30")
	assert.ErrorIs(t, svc.CreditCash(db, c.ID, huge), gameerr.ErrInvalid)
	assert.ErrorIs(t, svc.DebitCash(db, c.ID, huge), gameerr.ErrInvalid)
	assert.ErrorIs(t, svc.CreditCash(db, c.ID, MaxCash.Add(decimal.NewFromInt(1))), gameerr.ErrInvalid)

	require.NoError(t, svc.CreditCash(db, c.ID, decimal.NewFromInt(10)))
	err = svc.CreditCash(db, c.ID, MaxCash)
	require.ErrorIs(t, err, gameerr.ErrPrecondition)
	assert.Equal(t, "10", gameerr.DetailsOf(err)[0].Current)

	stored, err := svc.Load(db, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cash.Equal(decimal.NewFromInt(10)), stored.Cash.String())
}

func TestGrantXP(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Hal")
	require.NoError(t, err)

	p, err := svc.GrantXP(db, c, decimal.NewFromInt(450))
	require.NoError(t, err)
	assert.True(t, p.LeveledUp)
	assert.Equal(t, 3, c.Level)
	assert.True(t, c.TotalXP.Equal(decimal.NewFromInt(68)))

	stored, err := svc.Load(db, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Level)
	assert.True(t, stored.TotalXP.Equal(decimal.NewFromInt(68)))
}

func TestGrantSubjectXP(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Ivy")
	require.NoError(t, err)

	g, err := svc.GrantSubjectXP(db, c.ID, "physics", 60)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Level)
	assert.Equal(t, int64(10), g.XP)
	assert.True(t, g.LeveledUp)
	assert.Equal(t, int64(174), g.XPToNext)

	_, err = svc.GrantSubjectXP(db, c.ID, "alchemy", 5)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	svc, db, _ := newService(t)
	c, err := svc.Create(context.Background(), "Jo")
	require.NoError(t, err)
	_, err = svc.GrantSubjectXP(db, c.ID, "art", 50)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Grade{CharID: c.ID, ClassID: "prep-class-1", SubjectID: "art", Score: 77, CreatedAt: start}).Error)

	snap, err := svc.Snapshot(db, c)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.SubjectLevels["art"])
	assert.Equal(t, 1, snap.SubjectLevels["mathematics"])
	require.Len(t, snap.Grades, 1)
	assert.Equal(t, 77, snap.Grades[0].Score)
}

func TestReset(t *testing.T) {
	svc, db, clk := newService(t)
	c, err := svc.Create(context.Background(), "Kit")
	require.NoError(t, err)
	require.NoError(t, svc.CreditCash(db, c.ID, decimal.NewFromInt(500)))
	_, err = svc.GrantSubjectXP(db, c.ID, "art", 500)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Grade{CharID: c.ID, ClassID: "prep-class-1", SubjectID: "art", Score: 77}).Error)
	require.NoError(t, db.Model(c).Updates(map[string]any{"location_id": "school", "class_id": "school-class-3"}).Error)

	clk.Advance(time.Hour)
	require.NoError(t, svc.Reset(db, c))

	assert.Equal(t, "prep-school", c.LocationID)
	assert.Equal(t, "prep-class-1", *c.ClassID)
	assert.True(t, c.Cash.IsZero())
	assert.Equal(t, "Kit", c.Name)

	var grades int64
	db.Model(&model.Grade{}).Where("char_id = ?", c.ID).Count(&grades)
	assert.Zero(t, grades)
	subjects, err := svc.Subjects(db, c.ID)
	require.NoError(t, err)
	require.Len(t, subjects, 9)
	assert.Equal(t, 1, subjects[8].Level)
}

func TestView(t *testing.T) {
	svc, db, clk := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "Lou")
	require.NoError(t, err)
	require.NoError(t, svc.Spend(db, c, StudyPool, 1))
	clk.Advance(time.Minute)

	v, err := svc.View(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), v.XPToNext)
	assert.Equal(t, 99, v.StudyEnergy.Value)
	require.NotNil(t, v.StudyEnergy.NextUnitAt)
	assert.True(t, v.StudyEnergy.NextUnitAt.Equal(start.Add(3*time.Minute)))
	assert.Equal(t, "2:00", v.StudyEnergy.NextUnitIn)
	assert.Nil(t, v.OlympiadEnergy.NextUnitAt)
	assert.Empty(t, v.OlympiadEnergy.NextUnitIn)
	assert.Len(t, v.Subjects, 9)
	assert.Equal(t, int64(50), v.Subjects[0].XPToNext)

	require.NotNil(t, v.CurrentClass)
	assert.Equal(t, "prep-class-1", v.CurrentClass.ClassID)
	assert.False(t, v.CurrentClass.CanComplete)
	assert.Len(t, v.CurrentClass.Requirements.Checks, 2)

	require.NotNil(t, v.NextLocation)
	assert.Equal(t, "school", v.NextLocation.LocationID)
	assert.False(t, v.NextLocation.CanAdvance)
	assert.Zero(t, v.LocationPercent)
	assert.Zero(t, v.CachedPercent)
}

func TestGrades(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	c, err := svc.Create(ctx, "Mo")
	require.NoError(t, err)
	for i, g := range []model.Grade{
		{ClassID: "prep-class-1", SubjectID: "art", Score: 92},
		{ClassID: "prep-class-1", SubjectID: "art", Score: 60},
		{ClassID: "school-class-1", SubjectID: "mathematics", Score: 41},
	} {
		g.CharID, g.CreatedAt = c.ID, start.Add(time.Duration(i)*time.Minute)
		require.NoError(t, db.Create(&g).Error)
	}

	rep, err := svc.Grades(ctx, c.ID, "", grade.Letter)
	require.NoError(t, err)
	require.Len(t, rep.Grades, 3)
	assert.Equal(t, "mathematics", rep.Grades[0].SubjectID)
	assert.Equal(t, "D", rep.Grades[0].Display)
	require.Len(t, rep.Stats, 2)
	assert.Equal(t, grade.SubjectStats{SubjectID: "art", Count: 2, Average: 76, Best: 92, Worst: 60}, rep.Stats[0])

	rep, err = svc.Grades(ctx, c.ID, "prep-class-1", grade.FivePoint)
	require.NoError(t, err)
	require.Len(t, rep.Grades, 2)
	assert.Equal(t, "3", rep.Grades[0].Display)

	_, err = svc.Grades(ctx, 404, "", grade.Letter)
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}
