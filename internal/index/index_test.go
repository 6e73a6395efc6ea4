package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/rpgify/internal/apperr"
	"github.com/starford/rpgify/internal/models"
	"github.com/starford/rpgify/internal/progression"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "rpgify-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fptr(f float64) *float64 { return &f }

func quest(path, typ, class string, complete bool) models.Quest {
	return models.Quest{
		Path:      path,
		Title:     path,
		Type:      typ,
		Class:     class,
		Exp:       fptr(10),
		Complete:  complete,
		Checksum:  "cs-" + path,
		UpdatedAt: time.Now(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM quests`).Scan(&count); err != nil {
		t.Fatalf("quests table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM settings`).Scan(&count); err != nil {
		t.Fatalf("settings table missing: %v", err)
	}
}

func TestUpsertAndGetQuest(t *testing.T) {
	db := testDB(t)
	q := quest("Quests/tower.md", "Quest", "Mage", false)
	q.Title = "Tower"
	q.CompleteBy = "2025-06-20"
	q.OpenTasks, q.DoneTasks = 1, 2
	if err := db.UpsertQuest(q, "climb the tower"); err != nil {
		t.Fatalf("UpsertQuest: %v", err)
	}

	got, err := db.GetQuest("Quests/tower.md")
	if err != nil {
		t.Fatalf("GetQuest: %v", err)
	}
	if got.Title != "Tower" || got.Type != "Quest" || got.Class != "Mage" || got.CompleteBy != "2025-06-20" {
		t.Errorf("quest = %+v", got)
	}
	if got.Exp == nil || *got.Exp != 10 {
		t.Errorf("exp = %v", got.Exp)
	}
	if got.OpenTasks != 1 || got.DoneTasks != 2 || got.Complete {
		t.Errorf("task counts = %d/%d complete=%v", got.OpenTasks, got.DoneTasks, got.Complete)
	}

	cs, err := db.GetChecksum("Quests/tower.md")
	if err != nil || cs != "cs-Quests/tower.md" {
		t.Errorf("checksum = %q, %v", cs, err)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	q := quest("up.md", "Quest", "Mage", false)
	_ = db.UpsertQuest(q, "old body")
	q.Checksum = "2"
	q.Complete = true
	q.Exp = nil
	_ = db.UpsertQuest(q, "new body")

	got, err := db.GetQuest("up.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Checksum != "2" || !got.Complete || got.Exp != nil {
		t.Errorf("quest not updated: %+v", got)
	}
}

func TestGetQuest_NotFound(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertQuest(models.Quest{Path: "plain.md", Checksum: "p"}, "no front matter")

	for _, p := range []string{"missing.md", "plain.md"} {
		if _, err := db.GetQuest(p); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("GetQuest(%s) err = %v, want ErrNotFound", p, err)
		}
	}
	cs, _ := db.GetChecksum("plain.md")
	if cs != "p" {
		t.Errorf("plain files keep their checksum, got %q", cs)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestDeleteQuest(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertQuest(quest("del.md", "Quest", "Mage", true), "body")
	if err := db.DeleteQuest("del.md"); err != nil {
		t.Fatalf("DeleteQuest: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted quest still has checksum %q", cs)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertQuest(quest("a.md", "Quest", "", false), "")
	_ = db.UpsertQuest(models.Quest{Path: "b.md", Checksum: "b"}, "")

	all, err := db.AllChecksums()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all["a.md"] != "cs-a.md" || all["b.md"] != "b" {
		t.Errorf("checksums = %v", all)
	}
}

func TestListQuests_Filters(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertQuest(quest("a.md", "Quest", "Mage", true), "")
	_ = db.UpsertQuest(quest("b.md", "Quest", "Warlock", false), "")
	_ = db.UpsertQuest(quest("c.md", "Achievement", "Mage", true), "")
	_ = db.UpsertQuest(models.Quest{Path: "plain.md", Checksum: "p"}, "")

	done := true
	tests := []struct {
		name  string
		f     QuestFilter
		paths []string
	}{
		{"all", QuestFilter{}, []string{"a.md", "b.md", "c.md"}},
		{"type", QuestFilter{Type: "Quest"}, []string{"a.md", "b.md"}},
		{"class", QuestFilter{Class: "Mage"}, []string{"a.md", "c.md"}},
		{"complete", QuestFilter{Complete: &done, Type: "Quest"}, []string{"a.md"}},
		{"page", QuestFilter{Limit: 1, Offset: 1}, []string{"b.md"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := db.ListQuests(tt.f)
			if err != nil {
				t.Fatal(err)
			}
			var paths []string
			for _, q := range got {
				paths = append(paths, q.Path)
			}
			if len(paths) != len(tt.paths) {
				t.Fatalf("paths = %v, want %v", paths, tt.paths)
			}
			for i := range paths {
				if paths[i] != tt.paths[i] {
					t.Errorf("paths = %v, want %v", paths, tt.paths)
				}
			}
			if tt.name == "page" && total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		})
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	q := quest("s.md", "Quest", "Mage", false)
	q.Title = "Search Me"
	_ = db.UpsertQuest(q, "uniqueword appears here")
	_ = db.UpsertQuest(models.Quest{Path: "plain.md", Checksum: "p"}, "uniqueword in a plain note")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	db := testDB(t)
	if _, ok, err := db.LoadSettings(); err != nil || ok {
		t.Fatalf("fresh db: ok=%v err=%v", ok, err)
	}

	want := progression.NewSettings("Bob", "1990-06-16", "Mage, Warlock", nil)
	if err := db.SaveSettings(want); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if err := db.SaveSettings(want.WithName("Alice")); err != nil {
		t.Fatalf("SaveSettings again: %v", err)
	}
	got, ok, err := db.LoadSettings()
	if err != nil || !ok {
		t.Fatalf("LoadSettings: ok=%v err=%v", ok, err)
	}
	if got.Name != "Alice" || got.ClassesCSV() != "Mage, Warlock" || len(got.Types) != 2 {
		t.Errorf("settings = %+v", got)
	}
}
