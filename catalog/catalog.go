// Package catalog holds the static game definitions: subjects, locations,
// classes, specializations, items, recipes, quests and olympiads. Definitions are
// indexed by string ID and reference each other only by ID.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type document struct {
	Subjects        []Subject                 `yaml:"subjects"`
	Locations       []Location                `yaml:"locations"`
	Classes         []Class                   `yaml:"classes"`
	Specializations []Specialization          `yaml:"specializations"`
	Items           []Item                    `yaml:"items"`
	Recipes         []Recipe                  `yaml:"recipes"`
	Quests          []Quest                   `yaml:"quests"`
	Olympiads       []Olympiad                `yaml:"olympiads"`
	DailyRewards    []DailyReward             `yaml:"daily_rewards"`
	DropWeights     map[string]map[Rarity]int `yaml:"drop_weights"`
}

// Catalog is an immutable, ID-indexed view of the definitions.
type Catalog struct {
	subjects        map[string]*Subject
	subjectOrder    []string
	locations       map[string]*Location
	path            []*Location
	classes         map[string]*Class
	classesByLoc    map[string][]*Class
	specializations map[string]*Specialization
	specsByLoc      map[string][]*Specialization
	items           map[string]*Item
	itemsByRarity   map[Rarity][]*Item
	recipes         map[string]*Recipe
	recipeOrder     []*Recipe
	quests          map[string]*Quest
	questOrder      []string
	olympiads       map[string]*Olympiad
	olympiadOrder   []string
	daily           []DailyReward
	dropWeights     map[string]map[Rarity]int
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads a catalog from a YAML file. An empty path loads the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := build(doc)
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

func build(doc document) *Catalog {
	c := &Catalog{
		subjects:        make(map[string]*Subject),
		locations:       make(map[string]*Location),
		classes:         make(map[string]*Class),
		classesByLoc:    make(map[string][]*Class),
		specializations: make(map[string]*Specialization),
		specsByLoc:      make(map[string][]*Specialization),
		items:           make(map[string]*Item),
		itemsByRarity:   make(map[Rarity][]*Item),
		recipes:         make(map[string]*Recipe),
		quests:          make(map[string]*Quest),
		olympiads:       make(map[string]*Olympiad),
		daily:           doc.DailyRewards,
		dropWeights:     doc.DropWeights,
	}
	for i := range doc.Subjects {
		s := &doc.Subjects[i]
		c.subjects[s.ID] = s
		c.subjectOrder = append(c.subjectOrder, s.ID)
	}
	for i := range doc.Locations {
		l := &doc.Locations[i]
		c.locations[l.ID] = l
		c.path = append(c.path, l)
	}
	sort.SliceStable(c.path, func(i, j int) bool { return c.path[i].Order < c.path[j].Order })
	for i := range doc.Classes {
		cl := &doc.Classes[i]
		c.classes[cl.ID] = cl
		c.classesByLoc[cl.LocationID] = append(c.classesByLoc[cl.LocationID], cl)
	}
	for _, list := range c.classesByLoc {
		sort.SliceStable(list, func(i, j int) bool { return list[i].GradeNumber < list[j].GradeNumber })
	}
	for i := range doc.Specializations {
		s := &doc.Specializations[i]
		if s.AssessmentType == "" {
			s.AssessmentType = School
		}
		c.specializations[s.ID] = s
		c.specsByLoc[s.LocationID] = append(c.specsByLoc[s.LocationID], s)
	}
	for i := range doc.Items {
		it := &doc.Items[i]
		c.items[it.ID] = it
		c.itemsByRarity[it.Rarity] = append(c.itemsByRarity[it.Rarity], it)
	}
	for i := range doc.Recipes {
		r := &doc.Recipes[i]
		if r.ResultQuantity == 0 {
			r.ResultQuantity = 1
		}
		c.recipes[r.ID] = r
		c.recipeOrder = append(c.recipeOrder, r)
	}
	sort.SliceStable(c.recipeOrder, func(i, j int) bool {
		return c.recipeOrder[i].RequiredLevel < c.recipeOrder[j].RequiredLevel
	})
	for i := range doc.Quests {
		q := &doc.Quests[i]
		c.quests[q.ID] = q
		c.questOrder = append(c.questOrder, q.ID)
	}
	for i := range doc.Olympiads {
		o := &doc.Olympiads[i]
		c.olympiads[o.ID] = o
		c.olympiadOrder = append(c.olympiadOrder, o.ID)
	}
	return c
}

func (c *Catalog) validate() error {
	var errs error
	fail := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}
	subject := func(owner, id string) {
		if _, ok := c.subjects[id]; !ok {
			fail("%s: unknown subject %q", owner, id)
		}
	}

	if len(c.subjects) == 0 {
		fail("no subjects")
	}
	if len(c.path) == 0 {
		fail("no locations")
	}
	for i := 1; i < len(c.path); i++ {
		if c.path[i].Order == c.path[i-1].Order {
			fail("locations %q and %q share order %d", c.path[i-1].ID, c.path[i].ID, c.path[i].Order)
		}
	}
	for _, l := range c.path {
		for _, s := range l.AllowedSubjects {
			subject("location "+l.ID, s)
		}
		if l.Unlock == nil {
			continue
		}
		if l.Unlock.PreviousLocationID != "" {
			if _, ok := c.locations[l.Unlock.PreviousLocationID]; !ok {
				fail("location %s: unknown previous location %q", l.ID, l.Unlock.PreviousLocationID)
			}
		}
		for _, sl := range l.Unlock.SubjectLevels {
			subject("location "+l.ID, sl.SubjectID)
		}
	}
	for _, cl := range c.classes {
		if _, ok := c.locations[cl.LocationID]; !ok {
			fail("class %s: unknown location %q", cl.ID, cl.LocationID)
		}
		if cl.RequiredGradesPerSubject < 0 {
			fail("class %s: negative required grades", cl.ID)
		}
		for _, s := range cl.AllowedSubjects {
			subject("class "+cl.ID, s)
		}
		if r := cl.Requirements; r != nil {
			for _, sl := range r.SubjectLevels {
				subject("class "+cl.ID, sl.SubjectID)
			}
			for _, q := range r.GradeQuality {
				subject("class "+cl.ID, q.SubjectID)
			}
		}
	}
	for _, s := range c.specializations {
		if _, ok := c.locations[s.LocationID]; !ok {
			fail("specialization %s: unknown location %q", s.ID, s.LocationID)
		}
		for _, sl := range s.SubjectLevels {
			subject("specialization "+s.ID, sl.SubjectID)
		}
	}
	for _, it := range c.items {
		if !slices.Contains(Rarities, it.Rarity) {
			fail("item %s: unknown rarity %q", it.ID, it.Rarity)
		}
		if it.Slot == "" {
			fail("item %s: empty slot", it.ID)
		}
	}
	for _, r := range c.recipeOrder {
		if _, ok := c.items[r.ResultItemID]; !ok {
			fail("recipe %s: unknown result item %q", r.ID, r.ResultItemID)
		}
		if r.ResultQuantity < 0 {
			fail("recipe %s: negative result quantity", r.ID)
		}
		if len(r.Ingredients) == 0 {
			fail("recipe %s: no ingredients", r.ID)
		}
		for _, in := range r.Ingredients {
			if _, ok := c.items[in.ItemID]; !ok {
				fail("recipe %s: unknown ingredient %q", r.ID, in.ItemID)
			}
			if in.Quantity <= 0 {
				fail("recipe %s: ingredient %s needs a positive quantity", r.ID, in.ItemID)
			}
		}
	}
	for _, o := range c.olympiads {
		if o.SubjectID != "" {
			subject("olympiad "+o.ID, o.SubjectID)
		}
		if _, ok := c.dropWeights[o.Difficulty]; !ok {
			fail("olympiad %s: no drop weights for difficulty %q", o.ID, o.Difficulty)
		}
	}
	for i, d := range c.daily {
		if d.Day != i+1 {
			fail("daily reward %d: day out of sequence (%d)", i+1, d.Day)
		}
	}
	return errs
}

func (c *Catalog) Subject(id string) (*Subject, bool) {
	s, ok := c.subjects[id]
	return s, ok
}

// Subjects returns every subject in definition order.
func (c *Catalog) Subjects() []*Subject {
	out := make([]*Subject, 0, len(c.subjectOrder))
	for _, id := range c.subjectOrder {
		out = append(out, c.subjects[id])
	}
	return out
}

// SubjectIDs returns every subject ID in definition order.
func (c *Catalog) SubjectIDs() []string {
	return slices.Clone(c.subjectOrder)
}

// SubjectName returns the display name, falling back to the ID.
func (c *Catalog) SubjectName(id string) string {
	if s, ok := c.subjects[id]; ok {
		return s.Name
	}
	return id
}

func (c *Catalog) Location(id string) (*Location, bool) {
	l, ok := c.locations[id]
	return l, ok
}

// Locations returns every location in progression order.
func (c *Catalog) Locations() []*Location {
	return slices.Clone(c.path)
}

// FirstLocation returns the start of the progression path.
func (c *Catalog) FirstLocation() *Location {
	return c.path[0]
}

// NextLocation returns the location after id, or nil at the end of the path.
func (c *Catalog) NextLocation(id string) *Location {
	for i, l := range c.path {
		if l.ID == id && i+1 < len(c.path) {
			return c.path[i+1]
		}
	}
	return nil
}

func (c *Catalog) Class(id string) (*Class, bool) {
	cl, ok := c.classes[id]
	return cl, ok
}

// ClassesOf returns a location's classes ordered by grade number.
func (c *Catalog) ClassesOf(locationID string) []*Class {
	return slices.Clone(c.classesByLoc[locationID])
}

// FirstClass returns a location's first class, or nil if it has none.
func (c *Catalog) FirstClass(locationID string) *Class {
	if list := c.classesByLoc[locationID]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// ClassIndex returns the class's position within its location, or -1.
func (c *Catalog) ClassIndex(classID string) int {
	cl, ok := c.classes[classID]
	if !ok {
		return -1
	}
	for i, x := range c.classesByLoc[cl.LocationID] {
		if x.ID == classID {
			return i
		}
	}
	return -1
}

// NextClass returns the class after classID in the same location, or nil.
func (c *Catalog) NextClass(classID string) *Class {
	idx := c.ClassIndex(classID)
	if idx < 0 {
		return nil
	}
	list := c.classesByLoc[c.classes[classID].LocationID]
	if idx+1 < len(list) {
		return list[idx+1]
	}
	return nil
}

// LocationsOfType returns the locations of the given type in path order.
func (c *Catalog) LocationsOfType(t LocationType) []*Location {
	var out []*Location
	for _, l := range c.path {
		if l.Type == t {
			out = append(out, l)
		}
	}
	return out
}

func (c *Catalog) Specialization(id string) (*Specialization, bool) {
	s, ok := c.specializations[id]
	return s, ok
}

// SpecializationsOf returns the specializations offered at a location.
func (c *Catalog) SpecializationsOf(locationID string) []*Specialization {
	return slices.Clone(c.specsByLoc[locationID])
}

func (c *Catalog) Item(id string) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// ItemsByRarity returns the items of one rarity in definition order.
func (c *Catalog) ItemsByRarity(r Rarity) []*Item {
	return slices.Clone(c.itemsByRarity[r])
}

func (c *Catalog) Recipe(id string) (*Recipe, bool) {
	r, ok := c.recipes[id]
	return r, ok
}

// Recipes returns every recipe ordered by required level.
func (c *Catalog) Recipes() []*Recipe {
	return slices.Clone(c.recipeOrder)
}

func (c *Catalog) Quest(id string) (*Quest, bool) {
	q, ok := c.quests[id]
	return q, ok
}

func (c *Catalog) Quests() []*Quest {
	out := make([]*Quest, 0, len(c.questOrder))
	for _, id := range c.questOrder {
		out = append(out, c.quests[id])
	}
	return out
}

func (c *Catalog) Olympiad(id string) (*Olympiad, bool) {
	o, ok := c.olympiads[id]
	return o, ok
}

func (c *Catalog) Olympiads() []*Olympiad {
	out := make([]*Olympiad, 0, len(c.olympiadOrder))
	for _, id := range c.olympiadOrder {
		out = append(out, c.olympiads[id])
	}
	return out
}

// DailyRewards returns the login cycle, day 1 first.
func (c *Catalog) DailyRewards() []DailyReward {
	return slices.Clone(c.daily)
}

// DropWeights returns the rarity weights of a drop table, keyed by rarity.
// Study drops use the "study" table, olympiads their difficulty.
func (c *Catalog) DropWeights(table string) (keys []string, weights map[string]int) {
	w := c.dropWeights[table]
	weights = make(map[string]int, len(w))
	for _, r := range Rarities {
		if n := w[r]; n > 0 {
			keys = append(keys, string(r))
			weights[string(r)] = n
		}
	}
	return keys, weights
}
