package item

import (
	"context"
	"testing"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/kasuganosora/scholarquest/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	return NewService(db, testutil.Catalog(t), testutil.Logger()), db
}

func TestAdd_Stacks(t *testing.T) {
	svc, db := newService(t)
	require.NoError(t, svc.Add(db, 1, "gel-pen", 2))
	require.NoError(t, svc.Add(db, 1, "gel-pen", 3))

	n, err := svc.Count(db, 1, "gel-pen")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var rows int64
	db.Model(&model.Inventory{}).Where("char_id = 1").Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestAdd_Validation(t *testing.T) {
	svc, db := newService(t)
	assert.ErrorIs(t, svc.Add(db, 1, "gel-pen", 0), gameerr.ErrInvalid)
	assert.ErrorIs(t, svc.Add(db, 1, "laser-sword", 1), gameerr.ErrNotFound)
}

func TestRemove(t *testing.T) {
	svc, db := newService(t)
	require.NoError(t, svc.Add(db, 1, "moleskine", 2))

	err := svc.Remove(db, 1, "moleskine", 3)
	require.ErrorIs(t, err, gameerr.ErrPrecondition)
	assert.Equal(t, "2", gameerr.DetailsOf(err)[0].Current)

	require.NoError(t, svc.Remove(db, 1, "moleskine", 2))
	var rows int64
	db.Model(&model.Inventory{}).Where("char_id = 1").Count(&rows)
	assert.Zero(t, rows, "empty stack is deleted")

	assert.ErrorIs(t, svc.Remove(db, 1, "moleskine", 1), gameerr.ErrPrecondition)
}

func TestList(t *testing.T) {
	svc, db := newService(t)
	require.NoError(t, svc.Add(db, 4, "school-bag", 1))
	require.NoError(t, svc.Add(db, 4, "basic-notebook", 2))

	stacks, err := svc.List(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, stacks, 2)
	assert.Equal(t, "basic-notebook", stacks[0].ItemID)
	assert.Equal(t, "Basic Notebook", stacks[0].Item.Name)
	assert.Equal(t, 1, stacks[1].Qty)
}

func TestEquip_SwapsIntoBag(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(db, 1, "ballpoint-pen", 1))
	require.NoError(t, svc.Add(db, 1, "parker-pen", 1))

	eq, err := svc.Equip(ctx, 1, "ballpoint-pen")
	require.NoError(t, err)
	assert.Equal(t, "pen", eq.Slot)

	_, err = svc.Equip(ctx, 1, "parker-pen")
	require.NoError(t, err)

	n, _ := svc.Count(db, 1, "ballpoint-pen")
	assert.Equal(t, 1, n, "replaced item returns to the bag")
	n, _ = svc.Count(db, 1, "parker-pen")
	assert.Zero(t, n)

	list, err := svc.Equipment(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "parker-pen", list[0].ItemID)
}

func TestEquip_NotInBag(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Equip(context.Background(), 1, "fountain-pen")
	assert.ErrorIs(t, err, gameerr.ErrPrecondition)
}

func TestUnequip(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Add(db, 1, "smart-glasses", 1))
	_, err := svc.Equip(ctx, 1, "smart-glasses")
	require.NoError(t, err)

	require.NoError(t, svc.Unequip(ctx, 1, "glasses"))
	n, _ := svc.Count(db, 1, "smart-glasses")
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, svc.Unequip(ctx, 1, "glasses"), gameerr.ErrNotFound)
}

func TestBonuses(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	for _, id := range []string{"parker-pen", "moleskine", "graphing-calculator"} {
		require.NoError(t, svc.Add(db, 1, id, 1))
		_, err := svc.Equip(ctx, 1, id)
		require.NoError(t, err)
	}
	b, err := svc.Bonuses(db, 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.ItemStats{XPBonus: 15, CashBonus: 3, GradeBonus: 8}, b)

	none, err := svc.Bonuses(db, 2)
	require.NoError(t, err)
	assert.Zero(t, none.Total())
}

func TestRandomDrop(t *testing.T) {
	svc, db := newService(t)

	it := svc.RandomDrop(&dice.Stub{Rolls: []int{96, 1}}, "school")
	require.NotNil(t, it)
	assert.Equal(t, "moleskine", it.ID)

	it = svc.RandomDrop(&dice.Stub{Rolls: []int{1, 0}}, "school")
	require.NotNil(t, it)
	assert.Equal(t, catalog.Common, it.Rarity)

	assert.Nil(t, svc.RandomDrop(&dice.Stub{}, "no-such-table"))
	assert.Nil(t, svc.RandomOfRarity(&dice.Stub{}, catalog.Mythic))

	drop, err := svc.Grant(db, 3, it)
	require.NoError(t, err)
	assert.Equal(t, it.ID, drop.ItemID)
	n, _ := svc.Count(db, 3, it.ID)
	assert.Equal(t, 1, n)
}
