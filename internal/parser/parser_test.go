package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/rpgify/internal/apperr"
)

const questDoc = "---\nType: Quest\nExp: 30\nComplete by: 2025-03-01\nClass: Mage\ncomplete: false\nmood: curious\n---\n# Brew potion\n- [ ] Gather herbs\n"

func TestParse_TypedFrontmatter(t *testing.T) {
	r, err := Parse([]byte(questDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fm := r.Frontmatter
	if fm == nil {
		t.Fatal("expected front matter")
	}
	if fm.Type != "Quest" || fm.Class != "Mage" {
		t.Errorf("type/class = %q/%q", fm.Type, fm.Class)
	}
	if fm.Exp == nil || *fm.Exp != 30 {
		t.Errorf("exp = %v, want 30", fm.Exp)
	}
	if fm.CompleteBy != "2025-03-01" {
		t.Errorf("complete by = %q", fm.CompleteBy)
	}
	if fm.Complete == nil || *fm.Complete {
		t.Errorf("complete = %v, want false", fm.Complete)
	}
	if _, ok := fm.Unrecognized["mood"]; !ok {
		t.Errorf("mood should be quarantined, got %v", fm.Unrecognized)
	}
	if fm.HasAttribute("mood") {
		t.Error("unrecognized key must not count as an attribute")
	}
	if r.Title != "Brew potion" {
		t.Errorf("title = %q", r.Title)
	}
	if r.Body != "# Brew potion\n- [ ] Gather herbs\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_FenceEndOffset(t *testing.T) {
	data := []byte("\n---\nType: Quest\n---\nbody\n")
	r, _ := Parse(data)
	if r.FenceEnd < 0 {
		t.Fatal("expected fence offset")
	}
	if got := string(data[r.FenceEnd:]); got != "---\nbody\n" {
		t.Errorf("data[FenceEnd:] = %q", got)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\n- [x] done\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil front matter, got %+v", r.Frontmatter)
	}
	if r.FenceEnd != -1 {
		t.Errorf("FenceEnd = %d, want -1", r.FenceEnd)
	}
	if r.Frontmatter.HasAttribute(KeyType) {
		t.Error("nil front matter has no attributes")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil front matter on invalid YAML")
	}
}

func TestHasAttribute_NullIsAbsent(t *testing.T) {
	r, _ := Parse([]byte("---\nType: Quest\nComplete by:\n---\n"))
	if !r.Frontmatter.HasAttribute(KeyType) {
		t.Error("Type should be present")
	}
	if r.Frontmatter.HasAttribute(KeyCompleteBy) {
		t.Error("null Complete by should be absent")
	}
}

func TestAttributeEquals_Strict(t *testing.T) {
	r, _ := Parse([]byte("---\nClass: Mage\nExp: 10\n---\n"))
	fm := r.Frontmatter
	if !fm.AttributeEquals(KeyClass, "Mage") {
		t.Error("Class should equal Mage")
	}
	if fm.AttributeEquals(KeyClass, "mage") {
		t.Error("comparison must be case-sensitive")
	}
	if fm.AttributeEquals(KeyExp, "10") {
		t.Error("string 10 must not equal number 10")
	}
	if !fm.AttributeEquals(KeyExp, 10) {
		t.Error("Exp should equal int 10")
	}
	if fm.AttributeEquals(KeyType, "Quest") {
		t.Error("absent key never equals")
	}
}

func TestExpValue_NonNumeric(t *testing.T) {
	r, _ := Parse([]byte("---\nClass: Mage\nExp: lots\n---\n"))
	fm := r.Frontmatter
	if !fm.HasAttribute(KeyExp) {
		t.Error("malformed Exp is still present")
	}
	if _, err := fm.ExpValue(); !errors.Is(err, apperr.ErrData) {
		t.Errorf("err = %v, want ErrData", err)
	}
}

func TestExpValue_Missing(t *testing.T) {
	r, _ := Parse([]byte("---\nClass: Mage\n---\n"))
	if _, err := r.Frontmatter.ExpValue(); !errors.Is(err, apperr.ErrData) {
		t.Errorf("err = %v, want ErrData", err)
	}
}

func TestExpValue_RejectsOutOfRange(t *testing.T) {
	for _, v := range []string{"-10", "-0.5", ".nan", ".inf", "-.inf"} {
		r, _ := Parse([]byte("---\nClass: Mage\nExp: " + v + "\n---\n"))
		fm := r.Frontmatter
		if fm.Exp != nil {
			t.Errorf("Exp %s: stored %v", v, *fm.Exp)
		}
		if _, err := fm.ExpValue(); !errors.Is(err, apperr.ErrData) {
			t.Errorf("Exp %s: err = %v, want ErrData", v, err)
		}
	}

	r, _ := Parse([]byte("---\nExp: 0\n---\n"))
	if n, err := r.Frontmatter.ExpValue(); err != nil || n != 0 {
		t.Errorf("Exp 0: n=%v err=%v", n, err)
	}
}

func TestHasKey_IncludesNull(t *testing.T) {
	r, _ := Parse([]byte("---\n\"complete\":\nType: Quest\n---\n"))
	fm := r.Frontmatter
	if fm.HasAttribute(KeyComplete) {
		t.Error("null complete is not an attribute")
	}
	if !fm.HasKey(KeyComplete) || !fm.HasKey(KeyType) {
		t.Error("HasKey should see every key in the block")
	}
	if fm.HasKey(KeyClass) {
		t.Error("absent key reported present")
	}
}

func TestDueDate(t *testing.T) {
	r, _ := Parse([]byte("---\nComplete by: 2025-03-01\n---\n"))
	due, ok, err := r.Frontmatter.DueDate(time.UTC)
	if err != nil || !ok {
		t.Fatalf("DueDate: ok=%v err=%v", ok, err)
	}
	if !due.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("due = %v", due)
	}

	r, _ = Parse([]byte("---\nComplete by: someday\n---\n"))
	if _, ok, err := r.Frontmatter.DueDate(time.UTC); !ok || !errors.Is(err, apperr.ErrData) {
		t.Errorf("ok=%v err=%v, want present ErrData", ok, err)
	}

	r, _ = Parse([]byte("---\nType: Quest\n---\n"))
	if _, ok, _ := r.Frontmatter.DueDate(time.UTC); ok {
		t.Error("absent Complete by should report ok=false")
	}
}

func TestDeriveTitle_H1(t *testing.T) {
	if title := deriveTitle("some text\n# My Heading\nmore"); title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
	if title := deriveTitle("no heading"); title != "" {
		t.Errorf("title = %q, want empty", title)
	}
}
