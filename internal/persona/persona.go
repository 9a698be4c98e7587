package persona

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/neo/personasim/internal/logging"
	"github.com/neo/personasim/internal/rating"
)

// DefaultStanceRating is used for stance strings outside the vocabulary.
const DefaultStanceRating = 2.5

// stanceRatings maps the qualitative stances used in persona documents onto the raw scale
var stanceRatings = map[string]float64{
	"Strongly supportive":         4,
	"Supportive but data-focused": 3.5,
	"Hesitant":                    2.5,
	"Skeptical but open":          2,
	"Strongly opposed":            1,
}

var (
	ErrNoPersonas = errors.New("no personas found")
	ErrNoPersona  = errors.New("entry has no persona object")
	ErrNoName     = errors.New("persona has no persona_name")
)

// Persona is a synthetic profile. Only ID, Name and InitialRating are read by
// the simulation; Attributes is passed through to prompts untouched.
type Persona struct {
	ID            int
	Name          string
	InitialRating float64
	// Stance is the original stance string when the document used one.
	Stance       string
	Attributes   map[string]interface{}
	ArticlesRead []string
}

// entry is the on-disk shape: {"persona": {...}, "articles_read": [...]}
type entry struct {
	Persona      map[string]interface{} `yaml:"persona"`
	ArticlesRead []struct {
		Article string `yaml:"article"`
	} `yaml:"articles_read"`
}

// StanceRating converts a stance string to a raw rating. Unknown stances map
// to DefaultStanceRating and report false.
func StanceRating(stance string) (float64, bool) {
	if v, ok := stanceRatings[strings.TrimSpace(stance)]; ok {
		return v, true
	}
	return DefaultStanceRating, false
}

// Load reads a JSON or YAML document holding either a list of persona entries
// or a single entry.
func Load(path string) ([]*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}
	return Parse(data)
}

// Parse decodes persona entries from JSON or YAML bytes.
func Parse(data []byte) ([]*Persona, error) {
	var entries []entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var single entry
		if err2 := yaml.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("failed to parse personas: %w", err)
		}
		entries = []entry{single}
	}

	if len(entries) == 0 {
		return nil, ErrNoPersonas
	}

	personas := make([]*Persona, 0, len(entries))
	for i, e := range entries {
		p, err := fromEntry(e)
		if err != nil {
			return nil, fmt.Errorf("persona %d: %w", i, err)
		}
		personas = append(personas, p)
	}
	return personas, nil
}

func fromEntry(e entry) (*Persona, error) {
	if len(e.Persona) == 0 {
		return nil, ErrNoPersona
	}

	name, _ := e.Persona["persona_name"].(string)
	if name == "" {
		return nil, ErrNoName
	}

	p := &Persona{
		ID:         toInt(e.Persona["persona_id"]),
		Name:       name,
		Attributes: e.Persona,
	}

	p.InitialRating, p.Stance = initialRating(e.Persona)

	for _, a := range e.ArticlesRead {
		if a.Article != "" {
			p.ArticlesRead = append(p.ArticlesRead, a.Article)
		}
	}
	return p, nil
}

// initialRating looks for initial_vaccine_stance under beliefs_attitudes,
// then at the top level of the persona object.
func initialRating(attrs map[string]interface{}) (float64, string) {
	raw, ok := lookupStance(attrs)
	if !ok {
		return DefaultStanceRating, ""
	}

	switch v := raw.(type) {
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return clampStance(f), ""
		}
		r, known := StanceRating(v)
		if !known {
			logging.Warn("Unmapped vaccine stance, using default", map[string]interface{}{
				"stance":  v,
				"default": DefaultStanceRating,
			})
		}
		return r, v
	case int:
		return clampStance(float64(v)), ""
	case float64:
		return clampStance(v), ""
	default:
		return DefaultStanceRating, ""
	}
}

func lookupStance(attrs map[string]interface{}) (interface{}, bool) {
	if beliefs, ok := attrs["beliefs_attitudes"].(map[string]interface{}); ok {
		if v, ok := beliefs["initial_vaccine_stance"]; ok {
			return v, true
		}
	}
	v, ok := attrs["initial_vaccine_stance"]
	return v, ok
}

func clampStance(v float64) float64 {
	clamped, changed := rating.Clamp(v)
	if changed {
		logging.Warn("Initial vaccine stance out of range, clamping", map[string]interface{}{
			"stance":  v,
			"clamped": clamped,
		})
	}
	return clamped
}

func toInt(v interface{}) int {
	switch id := v.(type) {
	case int:
		return id
	case float64:
		return int(id)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err == nil {
			return n
		}
	}
	return 0
}

// JSON renders the persona attributes the way prompts embed them.
func (p *Persona) JSON() string {
	data, err := json.MarshalIndent(p.Attributes, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"persona_name": %q}`, p.Name)
	}
	return string(data)
}

// Default returns the built-in persona used when no personas file is available.
func Default() *Persona {
	attrs := map[string]interface{}{
		"persona_name": "Brian",
		"persona_id":   999,
		"description":  "Middle-Aged, Skeptical, Hesitant",
		"demographics": map[string]interface{}{
			"age":        45,
			"gender":     "Male",
			"location":   "Dartmouth, NS",
			"occupation": "Electrician",
			"education":  "Trade Certificate/College Diploma",
		},
		"personality": map[string]interface{}{
			"conceptual_archetype": "Moderate Openness, Lower Agreeableness, Higher skepticism/value on independence.",
		},
		"beliefs_attitudes": map[string]interface{}{
			"initial_vaccine_stance": 2,
			"stance_description":     "Probably No",
			"trust_levels": map[string]interface{}{
				"federal_provincial_government":          "Low",
				"pharmaceutical_companies":               "Low",
				"mainstream_media_news":                  "Low",
				"online_social_circles_alternative_news": "Moderate",
				"immediate_healthcare_providers":         "Moderate (for specific issues)",
				"broader_public_health_system":           "Low",
			},
			"specific_concerns_narratives": []interface{}{
				"Concerned about unknown long-term side effects of mRNA vaccines.",
				"Feels the risks of COVID-19 for healthy middle-aged people are often overstated.",
				"Worries about potential side effects interfering with work.",
				"Questions the necessity and effectiveness of repeated boosters.",
			},
			"key_motivator": "Avoiding perceived vaccine risks outweighs perceived disease risk.",
		},
		"information_sources": []interface{}{
			"Social media feeds",
			"YouTube channels",
			"Online forums",
			"Word-of-mouth",
			"Alternative news sites",
		},
		"relevant_values": []interface{}{
			"Individual liberty/autonomy",
			"Self-reliance",
			"Skepticism of authority (government and corporate)",
			"Personal risk assessment over collective mandates",
		},
		"narrative": "Brian is an electrician living in Dartmouth. He got the initial two COVID shots mainly because of travel and social pressures but has skipped subsequent boosters. He reads forums that question the official narrative on vaccine safety and prefers to make his own choices.",
	}

	return &Persona{
		ID:            999,
		Name:          "Brian",
		InitialRating: 2,
		Attributes:    attrs,
	}
}

// LoadOrDefault loads personas from path and falls back to Default when the
// file is missing, unreadable or empty.
func LoadOrDefault(path string) []*Persona {
	personas, err := Load(path)
	if err != nil {
		logging.Warn("Could not load personas, using default persona", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return []*Persona{Default()}
	}
	return personas
}
