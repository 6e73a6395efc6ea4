package parser

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/starford/rpgify/internal/apperr"
)

// Recognized front matter keys.
const (
	KeyType       = "Type"
	KeyClass      = "Class"
	KeyExp        = "Exp"
	KeyCompleteBy = "Complete by"
	KeyComplete   = "complete"
)

// DateLayout is the calendar date format used for Complete by and DOB.
const DateLayout = "2006-01-02"

var recognizedKeys = map[string]struct{}{
	KeyType:       {},
	KeyClass:      {},
	KeyExp:        {},
	KeyCompleteBy: {},
	KeyComplete:   {},
}

// Frontmatter is the closed set of progression keys read from a note.
// Keys outside that set land in Unrecognized and are never interpreted.
type Frontmatter struct {
	Type       string
	Class      string
	Exp        *float64
	CompleteBy string
	Complete   *bool

	// Invalid maps a recognized key to the reason its value was rejected.
	Invalid      map[string]error
	Unrecognized map[string]any

	raw  map[string]any
	keys map[string]struct{}
}

func newFrontmatter(raw map[string]any) *Frontmatter {
	fm := &Frontmatter{
		Invalid:      map[string]error{},
		Unrecognized: map[string]any{},
		raw:          map[string]any{},
		keys:         map[string]struct{}{},
	}
	for k, v := range raw {
		fm.keys[k] = struct{}{}
		if _, ok := recognizedKeys[k]; !ok {
			fm.Unrecognized[k] = v
			continue
		}
		if v == nil {
			continue
		}
		fm.raw[k] = v
		if err := fm.assign(k, v); err != nil {
			fm.Invalid[k] = err
		}
	}
	return fm
}

func (fm *Frontmatter) assign(key string, v any) error {
	switch key {
	case KeyType:
		s, ok := v.(string)
		if !ok {
			return typeError(key, "string", v)
		}
		fm.Type = s
	case KeyClass:
		s, ok := v.(string)
		if !ok {
			return typeError(key, "string", v)
		}
		fm.Class = s
	case KeyExp:
		n, ok := toFloat(v)
		if !ok {
			return typeError(key, "number", v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			return fmt.Errorf("%w: %s: want a finite non-negative number, got %v", apperr.ErrData, key, n)
		}
		fm.Exp = &n
	case KeyCompleteBy:
		switch d := v.(type) {
		case string:
			fm.CompleteBy = d
		case time.Time:
			fm.CompleteBy = d.Format(DateLayout)
		default:
			return typeError(key, "date", v)
		}
	case KeyComplete:
		b, ok := v.(bool)
		if !ok {
			return typeError(key, "boolean", v)
		}
		fm.Complete = &b
	}
	return nil
}

func typeError(key, want string, v any) error {
	return fmt.Errorf("%w: %s: want %s, got %T", apperr.ErrData, key, want, v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// HasAttribute reports whether a recognized key is present with a non-null value.
func (fm *Frontmatter) HasAttribute(name string) bool {
	if fm == nil {
		return false
	}
	_, ok := fm.raw[name]
	return ok
}

// HasKey reports whether the block contains name at all, even with a null value.
func (fm *Frontmatter) HasKey(name string) bool {
	if fm == nil {
		return false
	}
	_, ok := fm.keys[name]
	return ok
}

// AttributeEquals reports whether the stored value equals value exactly.
// There is no coercion: the string "10" never equals the number 10.
func (fm *Frontmatter) AttributeEquals(name string, value any) bool {
	if !fm.HasAttribute(name) || value == nil {
		return false
	}
	stored := fm.raw[name]
	st, vt := reflect.TypeOf(stored), reflect.TypeOf(value)
	if st != vt || !st.Comparable() {
		return false
	}
	return stored == value
}

// ExpValue returns the numeric Exp or an ErrData error when it is missing or malformed.
func (fm *Frontmatter) ExpValue() (float64, error) {
	if err, ok := fm.Invalid[KeyExp]; ok {
		return 0, err
	}
	if fm.Exp == nil {
		return 0, fmt.Errorf("%w: %s is missing", apperr.ErrData, KeyExp)
	}
	return *fm.Exp, nil
}

// DueDate parses Complete by. ok is false when the key is absent.
func (fm *Frontmatter) DueDate(loc *time.Location) (due time.Time, ok bool, err error) {
	if err, bad := fm.Invalid[KeyCompleteBy]; bad {
		return time.Time{}, true, err
	}
	if fm.CompleteBy == "" {
		return time.Time{}, false, nil
	}
	if t, perr := time.ParseInLocation(DateLayout, fm.CompleteBy, loc); perr == nil {
		return t, true, nil
	}
	if t, perr := time.Parse(time.RFC3339, fm.CompleteBy); perr == nil {
		return t.In(loc), true, nil
	}
	return time.Time{}, true, fmt.Errorf("%w: %s: unparseable date %q", apperr.ErrData, KeyCompleteBy, fm.CompleteBy)
}
