package model_test

import (
	"testing"
	"time"

	"github.com/kasuganosora/scholarquest/model"
	"github.com/kasuganosora/scholarquest/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	char := &model.Character{
		Name:              "Ada",
		Level:             1,
		Cash:              decimal.NewFromInt(250),
		StudyEnergy:       100,
		StudyEnergyMax:    100,
		StudyRegenAt:      now,
		OlympiadEnergy:    50,
		OlympiadEnergyMax: 50,
		OlympiadRegenAt:   now,
		LocationID:        "prep-school",
	}
	require.NoError(t, db.Create(char).Error)
	assert.Greater(t, char.ID, int64(0))

	var found model.Character
	require.NoError(t, db.First(&found, char.ID).Error)
	assert.Equal(t, "Ada", found.Name)
	assert.True(t, decimal.NewFromInt(250).Equal(found.Cash))
	assert.True(t, found.TotalXP.IsZero())
	assert.Nil(t, found.ClassID)

	require.NoError(t, db.Create(&model.SubjectProgress{CharID: char.ID, SubjectID: "math", Level: 1}).Error)
	require.NoError(t, db.Create(&model.Grade{CharID: char.ID, ClassID: "prep-class-1", SubjectID: "math", Score: 77, CreatedAt: now}).Error)
	require.NoError(t, db.Create(&model.Inventory{CharID: char.ID, ItemID: "ballpoint-pen", Qty: 3}).Error)

	listing := &model.MarketListing{
		SellerID: char.ID, ItemID: "ballpoint-pen", Quantity: 1,
		PricePerUnit: decimal.NewFromInt(40), ExpiresAt: now.Add(time.Hour), IsActive: true, CreatedAt: now,
	}
	require.NoError(t, db.Create(listing).Error)

	require.NoError(t, db.Create(&model.AuditLog{TraceID: "trace-001", Action: "market.create"}).Error)
}

func TestCashDebit_ArithmeticOnDecimalColumn(t *testing.T) {
	db := testutil.SetupTestDB(t)
	char := &model.Character{Name: "Bo", Level: 1, Cash: decimal.NewFromInt(1000), LocationID: "prep-school"}
	require.NoError(t, db.Create(char).Error)

	res := db.Model(&model.Character{}).
		Where("id = ? AND cash >= ?", char.ID, decimal.NewFromInt(400)).
		Update("cash", gorm.Expr("cash - ?", decimal.NewFromInt(400)))
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	res = db.Model(&model.Character{}).
		Where("id = ? AND cash >= ?", char.ID, decimal.NewFromInt(5000)).
		Update("cash", gorm.Expr("cash - ?", decimal.NewFromInt(5000)))
	require.NoError(t, res.Error)
	assert.Equal(t, int64(0), res.RowsAffected)

	var found model.Character
	require.NoError(t, db.First(&found, char.ID).Error)
	assert.Equal(t, "600", found.Cash.String())
}

func TestSubjectProgress_UniquePerCharacter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	require.NoError(t, db.Create(&model.SubjectProgress{CharID: 1, SubjectID: "math", Level: 1}).Error)
	err := db.Create(&model.SubjectProgress{CharID: 1, SubjectID: "math", Level: 1}).Error
	assert.Error(t, err)
}
