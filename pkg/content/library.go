package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

// Library is the full set of static content for a game.
type Library struct {
	Zones      []Zone                 `json:"zones"`
	NPCs       map[string]NPCTemplate `json:"npcs"`
	Abilities  map[string]Ability     `json:"abilities"`
	Items      map[string]Item        `json:"items"`
	Skills     map[string]Skill       `json:"skills"`
	Weather    []Weather              `json:"weather"`
	Druid      DruidSpec              `json:"druid"`
	Narratives []Narrative            `json:"narratives,omitempty"`

	duplicates []string // Repeated IDs dropped while loading keyed sections
}

// NewLibrary returns an empty library with initialized maps.
func NewLibrary() *Library {
	return &Library{
		NPCs:      make(map[string]NPCTemplate),
		Abilities: make(map[string]Ability),
		Items:     make(map[string]Item),
		Skills:    make(map[string]Skill),
	}
}

// Zone returns the zone definition with the given ID.
func (l *Library) Zone(id string) (Zone, bool) {
	for _, z := range l.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// WeatherByID returns the weather definition with the given ID.
func (l *Library) WeatherByID(id string) (Weather, bool) {
	for _, w := range l.Weather {
		if w.ID == id {
			return w, true
		}
	}
	return Weather{}, false
}

// SkillIDs returns skill IDs in tier then ID order.
func (l *Library) SkillIDs() []string {
	ids := make([]string, 0, len(l.Skills))
	for id := range l.Skills {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.Skills[ids[i]], l.Skills[ids[j]]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		return a.ID < b.ID
	})
	return ids
}

// Narrative picks flavor text for a zone and outcome. Zone-specific entries
// win over generic ones. An empty outcome selects the encounter intro.
func (l *Library) Narrative(zoneID, outcome string) string {
	fallback := ""
	for _, n := range l.Narratives {
		if n.Outcome != outcome {
			continue
		}
		if n.Zone == zoneID {
			return n.Text
		}
		if n.Zone == "" && fallback == "" {
			fallback = n.Text
		}
	}
	return fallback
}

// addUnique stores v under id unless the ID is already taken, in which case
// the first entry wins and the repeat is kept for Validate.
func addUnique[T any](lib *Library, m map[string]T, kind, id string, v T) {
	if _, ok := m[id]; ok {
		lib.duplicates = append(lib.duplicates, fmt.Sprintf("duplicate %s ID %q", kind, id))
		return
	}
	m[id] = v
}

// ErrSectionMissing is reported when neither a .json nor a .yaml file
// exists for a content section.
var ErrSectionMissing = errors.New("content section missing")

// Load reads every content section from fsys. A section that is missing or
// malformed is reported in the returned errors and left empty, so a partial
// library is always returned.
func Load(fsys fs.FS) (*Library, []error) {
	lib := NewLibrary()
	var errs []error

	var zones []Zone
	if err := loadSection(fsys, "zones", &zones); err != nil {
		errs = append(errs, err)
		zones = nil
	}
	lib.Zones = zones

	var npcs []NPCTemplate
	if err := loadSection(fsys, "npcs", &npcs); err != nil {
		errs = append(errs, err)
		npcs = nil
	}
	for _, n := range npcs {
		addUnique(lib, lib.NPCs, "npc", n.ID, n)
	}

	var abilities []Ability
	if err := loadSection(fsys, "abilities", &abilities); err != nil {
		errs = append(errs, err)
		abilities = nil
	}
	for _, a := range abilities {
		addUnique(lib, lib.Abilities, "ability", a.ID, a)
	}

	var items []Item
	if err := loadSection(fsys, "items", &items); err != nil {
		errs = append(errs, err)
		items = nil
	}
	for _, it := range items {
		addUnique(lib, lib.Items, "item", it.ID, it)
	}

	var skills []Skill
	if err := loadSection(fsys, "skills", &skills); err != nil {
		errs = append(errs, err)
		skills = nil
	}
	for _, s := range skills {
		addUnique(lib, lib.Skills, "skill", s.ID, s)
	}

	var weather []Weather
	if err := loadSection(fsys, "weather", &weather); err != nil {
		errs = append(errs, err)
		weather = nil
	}
	lib.Weather = weather

	var druid DruidSpec
	if err := loadSection(fsys, "druid", &druid); err != nil {
		errs = append(errs, err)
		druid = DruidSpec{}
	}
	lib.Druid = druid

	var narratives []Narrative
	if err := loadSection(fsys, "narratives", &narratives); err != nil {
		errs = append(errs, err)
		narratives = nil
	}
	lib.Narratives = narratives

	return lib, errs
}

// loadSection decodes <name>.json, falling back to <name>.yaml / <name>.yml.
func loadSection(fsys fs.FS, name string, out any) error {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		file := name + ext
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := decode(file, data, out); err != nil {
			return fmt.Errorf("failed to parse %s: %w", file, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSectionMissing, name)
}

func decode(file string, data []byte, out any) error {
	switch path.Ext(file) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}
