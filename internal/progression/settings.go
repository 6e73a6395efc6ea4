package progression

import (
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/rpgify/internal/parser"
)

// Registry attribute names.
const (
	AttrName  = "Name"
	AttrDOB   = "DOB"
	AttrType  = parser.KeyType
	AttrClass = parser.KeyClass
)

// DefaultTypes are the built-in note types.
var DefaultTypes = []string{"Quest", "Achievement"}

// Settings is an immutable snapshot of the player configuration. The With*
// methods return modified copies; the receiver is never changed.
type Settings struct {
	Name    string   `json:"name"`
	DOB     string   `json:"dob,omitempty"`
	Classes []string `json:"classes"`
	Types   []string `json:"types"`
}

// NewSettings builds a snapshot from the raw configuration values.
// classesCSV is the comma separated class list, e.g. "Warlock, Mage".
func NewSettings(name, dob, classesCSV string, types []string) Settings {
	if len(types) == 0 {
		types = DefaultTypes
	}
	return Settings{
		Name:    name,
		DOB:     dob,
		Classes: ParseClasses(classesCSV),
		Types:   slices.Clone(types),
	}
}

// ParseClasses splits a comma separated list, trimming blanks and dropping empty items.
func ParseClasses(csv string) []string {
	out := []string{}
	for _, s := range strings.Split(csv, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate validates the snapshot.
func (s Settings) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&s.DOB, validation.Date(parser.DateLayout)),
		validation.Field(&s.Types, validation.Required),
	)
}

// WithName returns a copy with a new display name.
func (s Settings) WithName(name string) Settings {
	c := s.clone()
	c.Name = name
	return c
}

// WithDOB returns a copy with a new date of birth (YYYY-MM-DD).
func (s Settings) WithDOB(dob string) Settings {
	c := s.clone()
	c.DOB = dob
	return c
}

// WithClasses returns a copy whose class list is parsed from csv.
func (s Settings) WithClasses(csv string) Settings {
	c := s.clone()
	c.Classes = ParseClasses(csv)
	return c
}

// ClassesCSV joins the class list back into its settings form.
func (s Settings) ClassesCSV() string {
	return strings.Join(s.Classes, ", ")
}

// Age returns the whole years between DOB and now. ok is false without a valid DOB.
func (s Settings) Age(now time.Time) (int, bool) {
	dob, err := time.ParseInLocation(parser.DateLayout, s.DOB, now.Location())
	if err != nil {
		return 0, false
	}
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0, false
	}
	return years, true
}

func (s Settings) clone() Settings {
	s.Classes = slices.Clone(s.Classes)
	s.Types = slices.Clone(s.Types)
	return s
}

// Attribute is one registry entry: an attribute name and its declared values.
type Attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Registry is the ordered attribute registry for one render pass.
type Registry struct {
	attrs []Attribute
}

// NewRegistry derives the registry from a settings snapshot.
// Name and DOB are display-only; Type and Class are classification axes.
func NewRegistry(s Settings) Registry {
	return Registry{attrs: []Attribute{
		{Name: AttrName, Values: []string{s.Name}},
		{Name: AttrDOB, Values: []string{s.DOB}},
		{Name: AttrType, Values: slices.Clone(s.Types)},
		{Name: AttrClass, Values: slices.Clone(s.Classes)},
	}}
}

// Attributes returns the registry entries in order.
func (r Registry) Attributes() []Attribute {
	return slices.Clone(r.attrs)
}

// Values returns the declared values of an attribute, or nil.
func (r Registry) Values(name string) []string {
	for _, a := range r.attrs {
		if a.Name == name {
			return slices.Clone(a.Values)
		}
	}
	return nil
}

// Axes returns the attribute names used for classification.
func (r Registry) Axes() []string {
	return []string{AttrType, AttrClass}
}
