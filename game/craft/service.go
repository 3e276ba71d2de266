// Package craft turns bag items into better ones through catalog recipes.
package craft

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/item"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxBatch caps how many times one request may run a recipe.
const maxBatch = 100

type Service struct {
	db     *gorm.DB
	chars  *character.Service
	items  *item.Service
	cat    *catalog.Catalog
	audit  audit.Recorder
	logger *zap.Logger
}

func NewService(db *gorm.DB, chars *character.Service, items *item.Service, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, items: items, cat: chars.Catalog(), audit: rec, logger: logger}
}

// IngredientStatus compares one ingredient against the bag.
type IngredientStatus struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	Required   int    `json:"required"`
	Owned      int    `json:"owned"`
	Sufficient bool   `json:"sufficient"`
}

// RecipeView is a recipe as one character sees it.
type RecipeView struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	RequiredLevel  int                `json:"required_level"`
	LevelMet       bool               `json:"level_met"`
	Result         *catalog.Item      `json:"result"`
	ResultQuantity int                `json:"result_quantity"`
	Ingredients    []IngredientStatus `json:"ingredients"`
	CanCraft       bool               `json:"can_craft"`
}

// Recipes lists every recipe with the character's level gate and
// per-ingredient stock, in required-level order.
func (svc *Service) Recipes(ctx context.Context, charID int64) ([]RecipeView, error) {
	var out []RecipeView
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		for _, r := range svc.cat.Recipes() {
			v, err := svc.view(tx, charID, c.Level, r, 1)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("list recipes", err)
	}
	return out, nil
}

func (svc *Service) view(tx *gorm.DB, charID int64, level int, r *catalog.Recipe, times int) (RecipeView, error) {
	result, _ := svc.cat.Item(r.ResultItemID)
	v := RecipeView{
		ID:             r.ID,
		Name:           r.Name,
		RequiredLevel:  r.RequiredLevel,
		LevelMet:       level >= r.RequiredLevel,
		Result:         result,
		ResultQuantity: r.ResultQuantity * times,
		Ingredients:    make([]IngredientStatus, 0, len(r.Ingredients)),
	}
	v.CanCraft = v.LevelMet
	for _, in := range r.Ingredients {
		owned, err := svc.items.Count(tx, charID, in.ItemID)
		if err != nil {
			return v, err
		}
		st := IngredientStatus{ItemID: in.ItemID, Required: in.Quantity * times, Owned: owned}
		if def, ok := svc.cat.Item(in.ItemID); ok {
			st.Name = def.Name
		}
		st.Sufficient = owned >= st.Required
		v.CanCraft = v.CanCraft && st.Sufficient
		v.Ingredients = append(v.Ingredients, st)
	}
	return v, nil
}

// Crafted is the outcome of a craft.
type Crafted struct {
	RecipeID string             `json:"recipe_id"`
	Times    int                `json:"times"`
	Item     *catalog.Item      `json:"item"`
	Quantity int                `json:"quantity"`
	Consumed []IngredientStatus `json:"consumed"`
}

// Craft runs recipeID times times. Every ingredient is checked before any
// is consumed, and the consumption and the result grant share one
// transaction.
func (svc *Service) Craft(ctx context.Context, charID int64, recipeID string, times int) (*Crafted, error) {
	if times < 1 || times > maxBatch {
		return nil, gameerr.Invalid("times must be between 1 and %d", maxBatch)
	}
	r, ok := svc.cat.Recipe(recipeID)
	if !ok {
		return nil, gameerr.NotFound("recipe %q not found", recipeID)
	}
	var res *Crafted
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if c.Level < r.RequiredLevel {
			return gameerr.Precondition("character level too low", gameerr.Detail{
				Clause:   "character_level",
				Current:  fmt.Sprint(c.Level),
				Required: fmt.Sprint(r.RequiredLevel),
				Message:  fmt.Sprintf("reach level %d to craft %s", r.RequiredLevel, r.Name),
			})
		}
		v, err := svc.view(tx, charID, c.Level, r, times)
		if err != nil {
			return err
		}
		var missing []gameerr.Detail
		for _, st := range v.Ingredients {
			if !st.Sufficient {
				missing = append(missing, gameerr.Detail{
					Clause:   "ingredient",
					Subject:  st.ItemID,
					Current:  fmt.Sprint(st.Owned),
					Required: fmt.Sprint(st.Required),
					Message:  fmt.Sprintf("need %d more %s", st.Required-st.Owned, st.Name),
				})
			}
		}
		if len(missing) > 0 {
			return gameerr.Precondition("missing ingredients", missing...)
		}
		for _, st := range v.Ingredients {
			if err := svc.items.Remove(tx, charID, st.ItemID, st.Required); err != nil {
				return err
			}
		}
		if err := svc.items.Add(tx, charID, r.ResultItemID, v.ResultQuantity); err != nil {
			return err
		}
		res = &Crafted{RecipeID: r.ID, Times: times, Item: v.Result, Quantity: v.ResultQuantity, Consumed: v.Ingredients}
		return nil
	})
	if err != nil {
		return nil, wrap("craft", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "craft", Detail: res})
	svc.logger.Info("item crafted",
		zap.Int64("char_id", charID), zap.String("recipe_id", r.ID),
		zap.String("item_id", r.ResultItemID), zap.Int("qty", res.Quantity))
	return res, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *gameerr.Error
	if errors.As(err, &ge) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
