// Package event runs ranked events: a timed window in which characters
// join once with a computed score, are ranked when the window closes and
// claim a reward by percentile tier.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kasuganosora/scholarquest/audit"
	"github.com/kasuganosora/scholarquest/cache"
	"github.com/kasuganosora/scholarquest/catalog"
	"github.com/kasuganosora/scholarquest/game/character"
	"github.com/kasuganosora/scholarquest/game/dice"
	"github.com/kasuganosora/scholarquest/game/gameerr"
	"github.com/kasuganosora/scholarquest/game/item"
	"github.com/kasuganosora/scholarquest/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FinalizedChannel receives a FinalizeResult for every finalized event.
const FinalizedChannel = "events.finalized"

const (
	varianceMax     = 50
	defaultPageSize = 50
	maxPageSize     = 200
)

type Status string

const (
	Upcoming  Status = "upcoming"
	Active    Status = "active"
	Ended     Status = "ended"
	Finalized Status = "finalized"
)

// StatusOf reports where an event is in its lifecycle at now.
func StatusOf(e *model.RankedEvent, now time.Time) Status {
	switch {
	case e.FinalizedAt != nil:
		return Finalized
	case now.Before(e.StartsAt):
		return Upcoming
	case now.Before(e.EndsAt):
		return Active
	default:
		return Ended
	}
}

// Service handles event participation.
type Service struct {
	db     *gorm.DB
	chars  *character.Service
	cat    *catalog.Catalog
	rng    dice.Roller
	pubsub cache.PubSub
	audit  audit.Recorder
	logger *zap.Logger
}

// NewService creates an event Service. pubsub may be nil.
func NewService(db *gorm.DB, chars *character.Service, rng dice.Roller, ps cache.PubSub, rec audit.Recorder, logger *zap.Logger) *Service {
	return &Service{db: db, chars: chars, cat: chars.Catalog(), rng: rng, pubsub: ps, audit: rec, logger: logger}
}

func (svc *Service) now() time.Time { return svc.chars.Clock().Now() }

// View is an event with its status and field size.
type View struct {
	*model.RankedEvent
	SubjectName  string    `json:"subject_name,omitempty"`
	Status       Status    `json:"status"`
	Participants int64     `json:"participants"`
	Standing     *Standing `json:"standing,omitempty"`
}

// Current returns the latest event that is active, starts within a week or
// ended within the last day, with charID's standing. It returns nil when
// there is none.
func (svc *Service) Current(ctx context.Context, charID int64) (*View, error) {
	now := svc.now()
	var e model.RankedEvent
	err := svc.db.WithContext(ctx).
		Where("(starts_at <= ? AND ends_at > ?) OR (starts_at > ? AND starts_at <= ?) OR (ends_at >= ? AND ends_at <= ?)",
			now, now, now, now.Add(7*24*time.Hour), now.Add(-24*time.Hour), now).
		Order("starts_at DESC").First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("current event", err)
	}
	return svc.view(ctx, &e, charID)
}

// Get returns one event with charID's standing.
func (svc *Service) Get(ctx context.Context, eventID, charID int64) (*View, error) {
	e, err := svc.load(svc.db.WithContext(ctx), eventID)
	if err != nil {
		return nil, err
	}
	return svc.view(ctx, e, charID)
}

func (svc *Service) view(ctx context.Context, e *model.RankedEvent, charID int64) (*View, error) {
	v := &View{RankedEvent: e, Status: StatusOf(e, svc.now())}
	if e.SubjectID != nil {
		v.SubjectName = svc.cat.SubjectName(*e.SubjectID)
	}
	st, err := svc.Rank(ctx, charID, e.ID)
	if err != nil {
		return nil, err
	}
	v.Participants = int64(st.Total)
	if st.Joined {
		v.Standing = st
	}
	return v, nil
}

// Join enters charID into an active event with a freshly computed score.
func (svc *Service) Join(ctx context.Context, charID, eventID int64) (*model.EventParticipant, error) {
	var p *model.EventParticipant
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := svc.load(tx, eventID)
		if err != nil {
			return err
		}
		switch StatusOf(e, svc.now()) {
		case Upcoming:
			return gameerr.Precondition("event has not started yet")
		case Ended, Finalized:
			return gameerr.Expired("event %d has ended", eventID)
		}
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&model.EventParticipant{}).
			Where("event_id = ? AND char_id = ?", eventID, charID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return gameerr.Conflict("already joined event %d", eventID)
		}
		score, err := svc.score(tx, c, e.SubjectID)
		if err != nil {
			return err
		}
		p = &model.EventParticipant{EventID: eventID, CharID: charID, Score: score, CreatedAt: svc.now()}
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return gameerr.Conflict("already joined event %d", eventID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, wrap("join event", err)
	}
	svc.logger.Info("event joined",
		zap.Int64("char_id", charID), zap.Int64("event_id", eventID), zap.Int("score", p.Score))
	return p, nil
}

// score is floor(avgSubjectLevel*100) + level*5 + equipBonus*10 + [0,50].
// avgSubjectLevel is the event subject's level for subject events.
func (svc *Service) score(tx *gorm.DB, c *model.Character, subjectID *string) (int, error) {
	subjects, err := svc.chars.Subjects(tx, c.ID)
	if err != nil {
		return 0, err
	}
	avg := 0.0
	if subjectID != nil {
		for _, s := range subjects {
			if s.SubjectID == *subjectID {
				avg = float64(s.Level)
			}
		}
	} else {
		sum := 0
		for _, s := range subjects {
			sum += s.Level
		}
		avg = float64(sum) / float64(max(len(subjects), 1))
	}
	bonus, err := item.SumBonuses(tx, svc.cat, c.ID)
	if err != nil {
		return 0, err
	}
	equip := bonus.XPBonus + bonus.GradeBonus
	return int(math.Floor(avg*100)) + c.Level*5 + equip*10 + svc.rng.Between(0, varianceMax), nil
}

// Standing is a character's position in an event.
type Standing struct {
	Joined         bool    `json:"joined"`
	Score          int     `json:"score,omitempty"`
	Rank           int     `json:"rank,omitempty"`
	Total          int     `json:"total"`
	Percentile     float64 `json:"percentile"`
	RewardsClaimed bool    `json:"rewards_claimed"`
	Final          bool    `json:"final"`
}

// Rank returns charID's standing. Before finalization the rank is the
// number of strictly higher scores plus one, so ties share a rank.
func (svc *Service) Rank(ctx context.Context, charID, eventID int64) (*Standing, error) {
	var st *Standing
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := svc.load(tx, eventID); err != nil {
			return err
		}
		var total int64
		if err := tx.Model(&model.EventParticipant{}).Where("event_id = ?", eventID).Count(&total).Error; err != nil {
			return err
		}
		st = &Standing{Total: int(total)}
		p, err := svc.participant(tx, eventID, charID)
		if gameerr.KindOf(err) == gameerr.KindNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		rank, final, err := svc.rankOf(tx, p)
		if err != nil {
			return err
		}
		st.Joined, st.Score, st.Rank, st.Final = true, p.Score, rank, final
		st.RewardsClaimed = p.RewardsClaimed
		st.Percentile = round1(Percentile(rank, st.Total))
		return nil
	})
	if err != nil {
		return nil, wrap("event rank", err)
	}
	return st, nil
}

func (svc *Service) rankOf(tx *gorm.DB, p *model.EventParticipant) (rank int, final bool, err error) {
	if p.Rank != nil {
		return *p.Rank, true, nil
	}
	var better int64
	err = tx.Model(&model.EventParticipant{}).
		Where("event_id = ? AND score > ?", p.EventID, p.Score).Count(&better).Error
	return int(better) + 1, false, err
}

// FinalizeResult summarizes a finalization.
type FinalizeResult struct {
	EventID      int64 `json:"event_id"`
	Participants int   `json:"participants"`
}

// Finalize assigns dense ranks 1..N by score, highest first, with earlier
// joiners ahead on equal scores. An event is finalized at most once and
// only after it ends.
func (svc *Service) Finalize(ctx context.Context, eventID int64) (*FinalizeResult, error) {
	res := &FinalizeResult{EventID: eventID}
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := svc.load(tx, eventID)
		if err != nil {
			return err
		}
		now := svc.now()
		switch StatusOf(e, now) {
		case Upcoming, Active:
			return gameerr.Precondition("event has not ended yet")
		case Finalized:
			return gameerr.Conflict("event %d is already finalized", eventID)
		}
		upd := tx.Model(&model.RankedEvent{}).
			Where("id = ? AND finalized_at IS NULL", eventID).Update("finalized_at", now)
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return gameerr.Conflict("event %d is already finalized", eventID)
		}
		var ps []model.EventParticipant
		if err := tx.Where("event_id = ?", eventID).Order("score DESC, id ASC").Find(&ps).Error; err != nil {
			return err
		}
		for i, p := range ps {
			if err := tx.Model(&model.EventParticipant{}).Where("id = ?", p.ID).Update("rank", i+1).Error; err != nil {
				return err
			}
		}
		res.Participants = len(ps)
		return nil
	})
	if err != nil {
		return nil, wrap("finalize event", err)
	}
	svc.notify(ctx, res)
	svc.logger.Info("event finalized", zap.Int64("event_id", eventID), zap.Int("participants", res.Participants))
	return res, nil
}

// ClaimResult is the reward granted for an event.
type ClaimResult struct {
	Tier       Tier            `json:"tier"`
	Rank       int             `json:"rank"`
	Percentile float64         `json:"percentile"`
	Cash       decimal.Decimal `json:"cash"`
	XP         decimal.Decimal `json:"xp"`
	Level      int             `json:"level"`
	LeveledUp  bool            `json:"leveled_up"`
}

// Claim grants charID's tier reward once the event has ended. The final
// rank is used when present, otherwise the tie-inclusive one.
func (svc *Service) Claim(ctx context.Context, charID, eventID int64) (*ClaimResult, error) {
	var res *ClaimResult
	err := svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := svc.load(tx, eventID)
		if err != nil {
			return err
		}
		if s := StatusOf(e, svc.now()); s == Upcoming || s == Active {
			return gameerr.Precondition("event has not ended yet")
		}
		p, err := svc.participant(tx, eventID, charID)
		if err != nil {
			return err
		}
		if p.RewardsClaimed {
			return gameerr.Conflict("rewards already claimed")
		}
		rank, _, err := svc.rankOf(tx, p)
		if err != nil {
			return err
		}
		var total int64
		if err := tx.Model(&model.EventParticipant{}).Where("event_id = ?", eventID).Count(&total).Error; err != nil {
			return err
		}
		tiers, err := parseTiers(e.RewardTiers)
		if err != nil {
			return fmt.Errorf("decode reward tiers: %w", err)
		}
		pct := Percentile(rank, int(total))
		tier := TierFor(pct)
		reward := tiers[tier]

		upd := tx.Model(&model.EventParticipant{}).
			Where("id = ? AND rewards_claimed = ?", p.ID, false).
			Updates(map[string]any{"rewards_claimed": true, "rank": rank})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return gameerr.Conflict("rewards already claimed")
		}
		c, err := svc.chars.Load(tx, charID)
		if err != nil {
			return err
		}
		cash, xp := decimal.NewFromInt(reward.Cash), decimal.NewFromInt(reward.XP)
		if err := svc.chars.CreditCash(tx, charID, cash); err != nil {
			return err
		}
		prog, err := svc.chars.GrantXP(tx, c, xp)
		if err != nil {
			return err
		}
		res = &ClaimResult{
			Tier:       tier,
			Rank:       rank,
			Percentile: round1(pct),
			Cash:       cash,
			XP:         xp,
			Level:      prog.Level,
			LeveledUp:  prog.LeveledUp,
		}
		return nil
	})
	if err != nil {
		return nil, wrap("claim rewards", err)
	}
	svc.audit.Log(ctx, audit.Entry{CharID: charID, Action: "event.claim", Detail: map[string]any{
		"event_id": eventID, "tier": res.Tier, "rank": res.Rank, "cash": res.Cash, "xp": res.XP,
	}})
	svc.logger.Info("event rewards claimed",
		zap.Int64("char_id", charID), zap.Int64("event_id", eventID),
		zap.String("tier", string(res.Tier)), zap.Int("rank", res.Rank))
	return res, nil
}

// Entry is one leaderboard row.
type Entry struct {
	Rank   int    `json:"rank"`
	CharID int64  `json:"char_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Level  int    `json:"level"`
}

// Leaderboard is one page of an event's standings.
type Leaderboard struct {
	Entries []Entry `json:"entries"`
	Total   int64   `json:"total"`
	HasMore bool    `json:"has_more"`
}

// Leaderboard pages through participants by score, highest first.
func (svc *Service) Leaderboard(ctx context.Context, eventID int64, limit, offset int) (*Leaderboard, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset = max(0, offset)
	db := svc.db.WithContext(ctx)
	if _, err := svc.load(db, eventID); err != nil {
		return nil, err
	}
	lb := &Leaderboard{Entries: []Entry{}}
	if err := db.Model(&model.EventParticipant{}).Where("event_id = ?", eventID).Count(&lb.Total).Error; err != nil {
		return nil, wrap("leaderboard", err)
	}
	var ps []model.EventParticipant
	if err := db.Where("event_id = ?", eventID).Order("score DESC, id ASC").
		Limit(limit).Offset(offset).Find(&ps).Error; err != nil {
		return nil, wrap("leaderboard", err)
	}
	if len(ps) == 0 {
		return lb, nil
	}

	ids := make([]int64, len(ps))
	for i, p := range ps {
		ids[i] = p.CharID
	}
	var chars []model.Character
	if err := db.Select("id", "name", "level").Where("id IN ?", ids).Find(&chars).Error; err != nil {
		return nil, wrap("leaderboard", err)
	}
	byID := make(map[int64]model.Character, len(chars))
	for _, c := range chars {
		byID[c.ID] = c
	}

	var rank int
	for i, p := range ps {
		switch {
		case p.Rank != nil:
			rank = *p.Rank
		case i == 0:
			var better int64
			if err := db.Model(&model.EventParticipant{}).
				Where("event_id = ? AND score > ?", eventID, p.Score).Count(&better).Error; err != nil {
				return nil, wrap("leaderboard", err)
			}
			rank = int(better) + 1
		case p.Score < ps[i-1].Score:
			rank = offset + i + 1
		}
		c := byID[p.CharID]
		lb.Entries = append(lb.Entries, Entry{Rank: rank, CharID: p.CharID, Name: c.Name, Score: p.Score, Level: c.Level})
	}
	lb.HasMore = int64(offset+len(ps)) < lb.Total
	return lb, nil
}

func (svc *Service) load(tx *gorm.DB, eventID int64) (*model.RankedEvent, error) {
	var e model.RankedEvent
	if err := tx.First(&e, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gameerr.NotFound("event %d not found", eventID)
		}
		return nil, err
	}
	return &e, nil
}

func (svc *Service) participant(tx *gorm.DB, eventID, charID int64) (*model.EventParticipant, error) {
	var p model.EventParticipant
	err := tx.Where("event_id = ? AND char_id = ?", eventID, charID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, gameerr.NotFound("character %d did not join event %d", charID, eventID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (svc *Service) notify(ctx context.Context, res *FinalizeResult) {
	if svc.pubsub == nil {
		return
	}
	payload, err := json.Marshal(res)
	if err == nil {
		err = svc.pubsub.Publish(ctx, FinalizedChannel, string(payload))
	}
	if err != nil {
		svc.logger.Warn("publish finalize failed", zap.Int64("event_id", res.EventID), zap.Error(err))
	}
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
