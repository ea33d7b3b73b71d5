package knowledge

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrMissingField is returned when a required profile field is absent.
var ErrMissingField = errors.New("knowledge base: missing required field")

type PersonalInfo struct {
	Name      string `yaml:"name" json:"name"`
	Title     string `yaml:"title" json:"title"`
	Email     string `yaml:"email" json:"email"`
	LinkedIn  string `yaml:"linkedin" json:"linkedin"`
	Portfolio string `yaml:"portfolio" json:"portfolio"`
	GitHub    string `yaml:"github" json:"github"`
	Location  string `yaml:"location" json:"location"`
	Pronouns  string `yaml:"pronouns" json:"pronouns"`
}

type Profile struct {
	YearsExperience int    `yaml:"yearsExperience" json:"yearsExperience"`
	Field           string `yaml:"field" json:"field"`
	Background      string `yaml:"background" json:"background"`
	CurrentEmployer string `yaml:"currentEmployer" json:"currentEmployer"`
	Specialty       string `yaml:"specialty" json:"specialty"`
	SpecialtyDetail string `yaml:"specialtyDetail" json:"specialtyDetail"`
	Highlights      string `yaml:"highlights" json:"highlights"`
	Education       string `yaml:"education" json:"education"`
	DesignTool      string `yaml:"designTool" json:"designTool"`
	DevTool         string `yaml:"devTool" json:"devTool"`
}

// KnowledgeBase is the validated profile document. Raw keeps every section
// of the source document, including ones only the LLM prompt reads.
type KnowledgeBase struct {
	PersonalInfo PersonalInfo   `yaml:"personalInfo"`
	Profile      Profile        `yaml:"profile"`
	Raw          map[string]any `yaml:"-"`
}

// Load reads a YAML or JSON knowledge base from path.
func Load(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read knowledge base %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a knowledge base document. JSON input is
// accepted since it is valid YAML.
func Parse(data []byte) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{}
	if err := yaml.Unmarshal(data, kb); err != nil {
		return nil, errors.Wrap(err, "decode knowledge base")
	}
	if err := yaml.Unmarshal(data, &kb.Raw); err != nil {
		return nil, errors.Wrap(err, "decode knowledge base sections")
	}
	if kb.Raw == nil {
		kb.Raw = map[string]any{}
	}
	if err := kb.Validate(); err != nil {
		return nil, err
	}
	kb.applyDefaults()
	return kb, nil
}

func (kb *KnowledgeBase) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"personalInfo.name", kb.PersonalInfo.Name},
		{"personalInfo.email", kb.PersonalInfo.Email},
		{"personalInfo.linkedin", kb.PersonalInfo.LinkedIn},
		{"personalInfo.portfolio", kb.PersonalInfo.Portfolio},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return errors.Wrap(ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

func (kb *KnowledgeBase) applyDefaults() {
	p := &kb.Profile
	if kb.PersonalInfo.Title == "" {
		kb.PersonalInfo.Title = "UI/UX Engineer"
	}
	if p.Field == "" {
		p.Field = "UI/UX"
	}
	if p.Specialty == "" {
		p.Specialty = "product"
	}
	if p.SpecialtyDetail == "" {
		p.SpecialtyDetail = "Designs dashboards and workflows that hold up under real-world pressure."
	}
	if p.Highlights == "" {
		p.Highlights = "Product platforms, dashboards, end-to-end workflows"
	}
	if p.DesignTool == "" {
		p.DesignTool = "Figma"
	}
	if p.DevTool == "" {
		p.DevTool = "React"
	}
	if kb.PersonalInfo.Location == "" {
		kb.PersonalInfo.Location = "a remote-friendly timezone"
	}
}

// FirstName is the first word of the person's name.
func (kb *KnowledgeBase) FirstName() string {
	fields := strings.Fields(kb.PersonalInfo.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Pronouns used when replies refer to the person.
type Pronouns struct {
	Subject    string // he / she / they
	Object     string // him / her / them
	Possessive string // his / her / their
	Be         string // is / are
}

// Pronouns parses personalInfo.pronouns ("he/him", "she/her", ...),
// defaulting to they/them.
func (kb *KnowledgeBase) Pronouns() Pronouns {
	switch strings.ToLower(strings.TrimSpace(kb.PersonalInfo.Pronouns)) {
	case "he", "he/him", "he/him/his":
		return Pronouns{Subject: "he", Object: "him", Possessive: "his", Be: "is"}
	case "she", "she/her", "she/her/hers":
		return Pronouns{Subject: "she", Object: "her", Possessive: "her", Be: "is"}
	default:
		return Pronouns{Subject: "they", Object: "them", Possessive: "their", Be: "are"}
	}
}
