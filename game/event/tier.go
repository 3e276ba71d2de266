package event

import (
	"encoding/json"
	"math"

	"github.com/kasuganosora/scholarquest/config"
	"gorm.io/datatypes"
)

type Tier string

const (
	Top10         Tier = "top10"
	Top25         Tier = "top25"
	Top50         Tier = "top50"
	Participation Tier = "participation"
)

// Tiers maps each reward tier to its flat reward.
type Tiers map[Tier]config.TierReward

// TiersFromConfig copies the configured tier rewards.
func TiersFromConfig(cfg map[string]config.TierReward) Tiers {
	t := make(Tiers, len(cfg))
	for k, v := range cfg {
		t[Tier(k)] = v
	}
	return t
}

// JSON encodes the tiers for storage on an event.
func (t Tiers) JSON() datatypes.JSON {
	b, _ := json.Marshal(t)
	return datatypes.JSON(b)
}

func parseTiers(raw datatypes.JSON) (Tiers, error) {
	t := Tiers{}
	if len(raw) == 0 {
		return t, nil
	}
	err := json.Unmarshal(raw, &t)
	return t, err
}

// Percentile is the share of the field a rank beats: (total-rank)/total*100.
func Percentile(rank, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(total-rank) / float64(total) * 100
}

// TierFor picks the reward tier for a percentile, best tier first.
func TierFor(percentile float64) Tier {
	switch {
	case percentile >= 90:
		return Top10
	case percentile >= 75:
		return Top25
	case percentile >= 50:
		return Top50
	default:
		return Participation
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
