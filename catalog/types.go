package catalog

type LocationType string

const (
	PrepSchool LocationType = "prep_school"
	School     LocationType = "school"
	College    LocationType = "college"
	University LocationType = "university"
)

type Rarity string

const (
	Common    Rarity = "common"
	Uncommon  Rarity = "uncommon"
	Rare      Rarity = "rare"
	Epic      Rarity = "epic"
	Legendary Rarity = "legendary"
	Mythic    Rarity = "mythic"
)

// Rarities lists every rarity from most to least common.
var Rarities = []Rarity{Common, Uncommon, Rare, Epic, Legendary, Mythic}

type Subject struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Category string `yaml:"category" json:"category"`
}

// SubjectLevel requires a subject to be at least MinLevel.
type SubjectLevel struct {
	SubjectID string `yaml:"subject" json:"subject_id"`
	MinLevel  int    `yaml:"min_level" json:"min_level"`
}

// GradeQuality requires Count grades of at least MinScore in a subject.
type GradeQuality struct {
	SubjectID string `yaml:"subject" json:"subject_id"`
	MinScore  int    `yaml:"min_score" json:"min_score"`
	Count     int    `yaml:"count" json:"count"`
}

type UnlockRequirement struct {
	PreviousLocationID      string         `yaml:"previous_location" json:"previous_location_id"`
	PreviousLocationPercent *float64       `yaml:"previous_percent" json:"previous_location_percent,omitempty"`
	SubjectLevels           []SubjectLevel `yaml:"subject_levels" json:"subject_levels,omitempty"`
}

// RequiredPercent returns the completion needed on the previous location.
func (u *UnlockRequirement) RequiredPercent() float64 {
	if u == nil || u.PreviousLocationPercent == nil {
		return 100
	}
	return *u.PreviousLocationPercent
}

type Location struct {
	ID              string             `yaml:"id" json:"id"`
	Name            string             `yaml:"name" json:"name"`
	Type            LocationType       `yaml:"type" json:"type"`
	Order           int                `yaml:"order" json:"order"`
	AllowedSubjects []string           `yaml:"allowed_subjects" json:"allowed_subjects"`
	Unlock          *UnlockRequirement `yaml:"unlock" json:"unlock,omitempty"`
}

type ClassRequirements struct {
	MinSubjectLevel int            `yaml:"min_subject_level" json:"min_subject_level,omitempty"`
	SubjectLevels   []SubjectLevel `yaml:"subject_levels" json:"subject_levels,omitempty"`
	GradeQuality    []GradeQuality `yaml:"grade_quality" json:"grade_quality,omitempty"`
}

type Class struct {
	ID                       string             `yaml:"id" json:"id"`
	LocationID               string             `yaml:"location" json:"location_id"`
	GradeNumber              int                `yaml:"grade" json:"grade_number"`
	RequiredGradesPerSubject int                `yaml:"required_grades_per_subject" json:"required_grades_per_subject"`
	AllowedSubjects          []string           `yaml:"allowed_subjects" json:"allowed_subjects"`
	Requirements             *ClassRequirements `yaml:"requirements" json:"requirements,omitempty"`
}

type Specialization struct {
	ID              string         `yaml:"id" json:"id"`
	Name            string         `yaml:"name" json:"name"`
	LocationID      string         `yaml:"location" json:"location_id"`
	SubjectLevels   []SubjectLevel `yaml:"subject_levels" json:"subject_levels"`
	MinGradeAverage int            `yaml:"min_grade_average" json:"min_grade_average"`
	AssessmentType  LocationType   `yaml:"assessment_type" json:"assessment_type"`
	UnlockCost      int64          `yaml:"unlock_cost" json:"unlock_cost"`
}

type ItemStats struct {
	XPBonus    int `yaml:"xp_bonus" json:"xp_bonus,omitempty"`
	CashBonus  int `yaml:"cash_bonus" json:"cash_bonus,omitempty"`
	GradeBonus int `yaml:"grade_bonus" json:"grade_bonus,omitempty"`
}

// Add returns the field-wise sum.
func (s ItemStats) Add(o ItemStats) ItemStats {
	return ItemStats{
		XPBonus:    s.XPBonus + o.XPBonus,
		CashBonus:  s.CashBonus + o.CashBonus,
		GradeBonus: s.GradeBonus + o.GradeBonus,
	}
}

// Total is the sum of all bonuses.
func (s ItemStats) Total() int {
	return s.XPBonus + s.CashBonus + s.GradeBonus
}

type Item struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Slot      string    `yaml:"slot" json:"slot"`
	Rarity    Rarity    `yaml:"rarity" json:"rarity"`
	Stats     ItemStats `yaml:"stats" json:"stats"`
	Tradeable bool      `yaml:"tradeable" json:"tradeable"`
}

type Quest struct {
	ID                     string  `yaml:"id" json:"id"`
	Name                   string  `yaml:"name" json:"name"`
	EnergyCost             int     `yaml:"energy_cost" json:"energy_cost"`
	CooldownSeconds        int     `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	RequiredCharacterLevel int     `yaml:"required_character_level" json:"required_character_level"`
	RequiredSubjectLevel   int     `yaml:"required_subject_level" json:"required_subject_level"`
	CashMin                int     `yaml:"cash_min" json:"cash_min"`
	CashMax                int     `yaml:"cash_max" json:"cash_max"`
	SubjectXPMin           int     `yaml:"subject_xp_min" json:"subject_xp_min"`
	SubjectXPMax           int     `yaml:"subject_xp_max" json:"subject_xp_max"`
	ItemChance             float64 `yaml:"item_chance" json:"item_chance"`
}

type Olympiad struct {
	ID            string  `yaml:"id" json:"id"`
	Name          string  `yaml:"name" json:"name"`
	Difficulty    string  `yaml:"difficulty" json:"difficulty"`
	SubjectID     string  `yaml:"subject" json:"subject_id,omitempty"`
	EnergyCost    int     `yaml:"energy_cost" json:"energy_cost"`
	NPCLevelMin   int     `yaml:"npc_level_min" json:"npc_level_min"`
	NPCLevelMax   int     `yaml:"npc_level_max" json:"npc_level_max"`
	CashMin       int     `yaml:"cash_min" json:"cash_min"`
	CashMax       int     `yaml:"cash_max" json:"cash_max"`
	XPMin         int     `yaml:"xp_min" json:"xp_min"`
	XPMax         int     `yaml:"xp_max" json:"xp_max"`
	ItemChance    float64 `yaml:"item_chance" json:"item_chance"`
	RequiredLevel int     `yaml:"required_level" json:"required_level"`
}

// DailyReward is the reward for one day of the login cycle.
type DailyReward struct {
	Day         int    `yaml:"day" json:"day"`
	Cash        int64  `yaml:"cash" json:"cash,omitempty"`
	StudyEnergy int    `yaml:"study_energy" json:"study_energy,omitempty"`
	ItemRarity  Rarity `yaml:"item_rarity" json:"item_rarity,omitempty"`
}

// Ingredient is one input of a recipe.
type Ingredient struct {
	ItemID   string `yaml:"item" json:"item_id"`
	Quantity int    `yaml:"quantity" json:"quantity"`
}

// Recipe turns a set of bag items into a result item.
type Recipe struct {
	ID             string       `yaml:"id" json:"id"`
	Name           string       `yaml:"name" json:"name"`
	ResultItemID   string       `yaml:"result" json:"result_item_id"`
	ResultQuantity int          `yaml:"result_quantity" json:"result_quantity"`
	Ingredients    []Ingredient `yaml:"ingredients" json:"ingredients"`
	RequiredLevel  int          `yaml:"required_level" json:"required_level"`
}
