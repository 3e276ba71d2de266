package character

import (
	"context"

	"github.com/kasuganosora/scholarquest/game/grade"
	"github.com/kasuganosora/scholarquest/model"
)

// GradeEntry is a stored grade rendered in a display system.
type GradeEntry struct {
	model.Grade
	SubjectName string `json:"subject_name"`
	Display     string `json:"display"`
}

// GradeReport lists grades newest first with per-subject stats.
type GradeReport struct {
	Grades []GradeEntry         `json:"grades"`
	Stats  []grade.SubjectStats `json:"stats"`
}

// Grades returns a character's grades, limited to classID when it is set.
func (svc *Service) Grades(ctx context.Context, charID int64, classID string, system grade.System) (*GradeReport, error) {
	db := svc.db.WithContext(ctx)
	if _, err := svc.Load(db, charID); err != nil {
		return nil, err
	}
	q := db.Where("char_id = ?", charID)
	if classID != "" {
		q = q.Where("class_id = ?", classID)
	}
	var rows []model.Grade
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, wrap("list grades", err)
	}
	rep := &GradeReport{Grades: make([]GradeEntry, len(rows)), Stats: grade.Stats(rows)}
	for i, g := range rows {
		rep.Grades[i] = GradeEntry{Grade: g, SubjectName: svc.cat.SubjectName(g.SubjectID), Display: grade.Format(g.Score, system)}
	}
	return rep, nil
}
