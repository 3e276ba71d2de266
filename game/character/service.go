// Package character owns the character record: creation, loading inside
// transactions, energy pools, cash and XP mutation, and requirement
// snapshots. Other services call it with their own transaction.
package character

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/config"
	"github.com/kasuganosora/scholarquest/game/clock"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/leveling"
	"github.com/kasuganosora/scholarquest/game/requirement"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNameLen = 32

// Service manages character records.
type Service struct {
	db     *gorm.DB
	cat    *catalog.Catalog
	clk    clock.Clock
	cfg    config.GameConfig
	logger *zap.Logger

	charCurve    leveling.Curve
	subjectCurve leveling.Curve
}

// NewService creates a character Service.
func NewService(db *gorm.DB, cat *catalog.Catalog, clk clock.Clock, cfg config.GameConfig, logger *zap.Logger) *Service {
	return &Service{
		db:           db,
		cat:          cat,
		clk:          clk,
		cfg:          cfg,
		logger:       logger,
		charCurve:    leveling.FromConfig(cfg.CharacterCurve),
		subjectCurve: leveling.FromConfig(cfg.SubjectCurve),
	}
}

func (svc *Service) Catalog() *catalog.Catalog      { return svc.cat }
func (svc *Service) Clock() clock.Clock             { return svc.clk }
func (svc *Service) CharacterCurve() leveling.Curve { return svc.charCurve }
func (svc *Service) SubjectCurve() leveling.Curve   { return svc.subjectCurve }

// Create registers a new character at the start of the progression path
// with every subject at level 1 and both energy pools full.
func (svc *Service) Create(ctx context.Context, name string) (*model.Character, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, gameerr.Invalid("name must be 1-%d characters", maxNameLen)
	}
	now := svc.clk.Now()
	loc := svc.cat.FirstLocation()
	c := &model.Character{
		Name:              name,
		Level:             1,
		TotalXP:           decimal.Zero,
		Cash:              decimal.Zero,
		StudyEnergy:       svc.cfg.StudyEnergy.Max,
		StudyEnergyMax:    svc.cfg.StudyEnergy.Max,
		StudyRegenAt:      now,
		OlympiadEnergy:    svc.cfg.OlympiadEnergy.Max,
		OlympiadEnergyMax: svc.cfg.OlympiadEnergy.Max,
		OlympiadRegenAt:   now,
		LocationID:        loc.ID,
		CreatedAt:         now,
	}
	if cl := svc.cat.FirstClass(loc.ID); cl != nil {
		c.ClassID = &cl.ID
	}

	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Character{}).Where("name = ?", name).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return gameerr.Conflict("name %q is taken", name)
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return svc.seedSubjects(tx, c.ID)
	})
	if err != nil {
		return nil, wrap("create character", err)
	}
	svc.logger.Info("character created", zap.Int64("char_id", c.ID), zap.String("name", name))
	return c, nil
}

func (svc *Service) seedSubjects(tx *gorm.DB, charID int64) error {
	subjects := svc.cat.SubjectIDs()
	rows := make([]model.SubjectProgress, len(subjects))
	for i, id := range subjects {
		rows[i] = model.SubjectProgress{CharID: charID, SubjectID: id, Level: 1}
	}
	return tx.Create(&rows).Error
}

// Load reads a character inside tx.
func (svc *Service) Load(tx *gorm.DB, charID int64) (*model.Character, error) {
	var c model.Character
	if err := tx.First(&c, charID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gameerr.NotFound("character %d not found", charID)
		}
		return nil, fmt.Errorf("load character: %w", err)
	}
	return &c, nil
}

// Get returns a character with both energy pools regenerated and persisted.
func (svc *Service) Get(ctx context.Context, charID int64) (*model.Character, error) {
	var c *model.Character
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = svc.Load(tx, charID); err != nil {
			return err
		}
		return svc.Regen(tx, c)
	})
	return c, err
}

// Exists returns a NotFound error when charID names no character.
func (svc *Service) Exists(ctx context.Context, charID int64) error {
	var n int64
	if err := svc.db.WithContext(ctx).Model(&model.Character{}).Where("id = ?", charID).Count(&n).Error; err != nil {
		return fmt.Errorf("check character: %w", err)
	}
	if n == 0 {
		return gameerr.NotFound("character %d not found", charID)
	}
	return nil
}

// Subjects returns a character's subject progress in catalog order.
func (svc *Service) Subjects(tx *gorm.DB, charID int64) ([]model.SubjectProgress, error) {
	var rows []model.SubjectProgress
	if err := tx.Where("char_id = ?", charID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	order := make(map[string]int)
	for i, id := range svc.cat.SubjectIDs() {
		order[id] = i
	}
	sortByOrder(rows, order)
	return rows, nil
}

// Snapshot gathers the state requirement bundles read.
func (svc *Service) Snapshot(tx *gorm.DB, c *model.Character) (requirement.Snapshot, error) {
	subjects, err := svc.Subjects(tx, c.ID)
	if err != nil {
		return requirement.Snapshot{}, err
	}
	var grades []model.Grade
	if err := tx.Where("char_id = ?", c.ID).Order("id").Find(&grades).Error; err != nil {
		return requirement.Snapshot{}, fmt.Errorf("load grades: %w", err)
	}
	snap := requirement.Snapshot{
		SubjectLevels: make(map[string]int, len(subjects)),
		Cash:          c.Cash,
		Grades:        make([]requirement.Grade, len(grades)),
	}
	for _, s := range subjects {
		snap.SubjectLevels[s.SubjectID] = s.Level
	}
	for i, g := range grades {
		snap.Grades[i] = requirement.Grade{ClassID: g.ClassID, SubjectID: g.SubjectID, Score: g.Score}
	}
	return snap, nil
}

func wrap(op string, err error) error {
	var ge *gameerr.Error
	if errors.As(err, &ge) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
