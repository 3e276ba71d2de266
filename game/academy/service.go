// Package academy moves characters along the progression path: completing
// classes, advancing to the next location and choosing a specialization.
package academy

import (
	"context"
	"errors"
	"fmt"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/requirement"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service runs the class, location and specialization transitions.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	cat    *catalog.Catalog
	audit  audit.Recorder
	logger *zap.Logger
}

// NewService creates an academy Service.
func NewService(db *gorm.DB, chars *character.Service, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, cat: chars.Catalog(), audit: rec, logger: logger}
}

// ClassResult describes a completed class.
type ClassResult struct {
	CompletedClassID  string  `json:"completed_class_id"`
	GradeNumber       int     `json:"grade_number"`
	LocationPercent   float64 `json:"location_percent"`
	NextClassID       *string `json:"next_class_id"`
	LocationCompleted bool    `json:"location_completed"`
}

// CompleteClass checks the current class's requirement bundle, stores the
// class-count completion of the location and moves to the next class.
func (svc *Service) CompleteClass(ctx context.Context, charID int64) (*ClassResult, error) {
	var res *ClassResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if c.ClassID == nil {
			return gameerr.Precondition("no current class")
		}
		cl, ok := svc.cat.Class(*c.ClassID)
		if !ok {
			return gameerr.NotFound("class %q not found", *c.ClassID)
		}
		snap, err := svc.chars.Snapshot(tx, c)
		if err != nil {
			return err
		}
		if err := requirement.ForClass(svc.cat, snap, cl).Err("class requirements not met"); err != nil {
			return err
		}

		classes := svc.cat.ClassesOf(cl.LocationID)
		idx := svc.cat.ClassIndex(cl.ID)
		percent := float64(idx+1) / float64(len(classes)) * 100
		next := svc.cat.NextClass(cl.ID)

		lp := model.LocationProgress{
			CharID:            c.ID,
			LocationID:        cl.LocationID,
			CompletionPercent: percent,
			IsCompleted:       next == nil,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "char_id"}, {Name: "location_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completion_percent", "is_completed", "updated_at"}),
		}).Create(&lp).Error
		if err != nil {
			return fmt.Errorf("store location progress: %w", err)
		}

		var nextID *string
		if next != nil {
			nextID = &next.ID
		}
		upd := tx.Model(&model.Character{}).
			Where("id = ? AND class_id = ?", c.ID, cl.ID).
			Updates(map[string]any{"class_id": nextID, "class_study_clicks": 0})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return gameerr.Conflict("class changed concurrently")
		}
		res = &ClassResult{
			CompletedClassID:  cl.ID,
			GradeNumber:       cl.GradeNumber,
			LocationPercent:   percent,
			NextClassID:       nextID,
			LocationCompleted: next == nil,
		}
		return nil
	})
	if err != nil {
		return nil, wrap("complete class", err)
	}
	svc.logger.Info("class completed",
		zap.Int64("char_id", charID),
		zap.String("class_id", res.CompletedClassID),
		zap.Float64("location_percent", res.LocationPercent))
	return res, nil
}

// AdvanceResult describes a location change.
type AdvanceResult struct {
	PreviousLocationID string  `json:"previous_location_id"`
	LocationID         string  `json:"location_id"`
	ClassID            *string `json:"class_id"`
}

// AdvanceLocation moves to the next location on the path once its unlock
// requirement holds. The completion gate is recomputed from grades.
func (svc *Service) AdvanceLocation(ctx context.Context, charID int64) (*AdvanceResult, error) {
	var res *AdvanceResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		next := svc.cat.NextLocation(c.LocationID)
		if next == nil {
			return gameerr.Precondition("no next location available")
		}
		snap, err := svc.chars.Snapshot(tx, c)
		if err != nil {
			return err
		}
		if err := requirement.ForLocation(svc.cat, snap, c.LocationID, next).Err("location requirements not met"); err != nil {
			return err
		}

		var classID *string
		if first := svc.cat.FirstClass(next.ID); first != nil {
			classID = &first.ID
		}
		upd := tx.Model(&model.Character{}).
			Where("id = ? AND location_id = ?", c.ID, c.LocationID).
			Updates(map[string]any{"location_id": next.ID, "class_id": classID, "class_study_clicks": 0})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return gameerr.Conflict("location changed concurrently")
		}
		res = &AdvanceResult{PreviousLocationID: c.LocationID, LocationID: next.ID, ClassID: classID}
		return nil
	})
	if err != nil {
		return nil, wrap("advance location", err)
	}
	svc.logger.Info("location advanced",
		zap.Int64("char_id", charID),
		zap.String("from", res.PreviousLocationID),
		zap.String("to", res.LocationID))
	return res, nil
}

// SpecializationResult describes a purchased specialization.
type SpecializationResult struct {
	SpecializationID string          `json:"specialization_id"`
	Cost             decimal.Decimal `json:"cost"`
	Cash             decimal.Decimal `json:"cash"`
}

// SelectSpecialization checks the specialization's requirements, then debits
// its cost and sets it in one conditional update. A character holds at most
// one specialization and cannot change it.
func (svc *Service) SelectSpecialization(ctx context.Context, charID int64, specID string) (*SpecializationResult, error) {
	spec, ok := svc.cat.Specialization(specID)
	if !ok {
		return nil, gameerr.NotFound("specialization %q not found", specID)
	}
	cost := decimal.NewFromInt(spec.UnlockCost)
	var res *SpecializationResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		if c.SpecializationID != nil {
			return gameerr.Conflict("specialization already selected: %s", *c.SpecializationID)
		}
		loc, ok := svc.cat.Location(c.LocationID)
		if !ok || loc.Type != catalog.College {
			return gameerr.Precondition("specializations are chosen at college")
		}
		if spec.LocationID != c.LocationID {
			return gameerr.Precondition("specialization is not offered here")
		}
		snap, err := svc.chars.Snapshot(tx, c)
		if err != nil {
			return err
		}
		if err := requirement.ForSpecialization(svc.cat, snap, spec).Err("specialization requirements not met"); err != nil {
			return err
		}

		upd := tx.Model(&model.Character{}).
			Where("id = ? AND specialization_id IS NULL AND cash >= ?", c.ID, cost).
			Updates(map[string]any{"specialization_id": spec.ID, "cash": gorm.Expr("cash - ?", cost)})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return gameerr.Conflict("character changed concurrently")
		}
		res = &SpecializationResult{SpecializationID: spec.ID, Cost: cost, Cash: c.Cash.Sub(cost)}
		return nil
	})
	if err != nil {
		return nil, wrap("select specialization", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "academy.specialization", Detail: res})
	svc.logger.Info("specialization selected",
		zap.Int64("char_id", charID),
		zap.String("specialization_id", spec.ID),
		zap.String("cost", cost.String()))
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
