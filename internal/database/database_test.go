package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

var (
	alice = RequestContext{User: "alice", Region: "US"}
	bob   = RequestContext{User: "bob", Region: "US"}
)

func TestAddSelection(t *testing.T) {
	db := openTestDB(t)
	s, err := db.AddSelection(alice, NewSelection{
		Headline:    "Experts Reveal Why 55+ Love This",
		SourceTable: "scrape_data",
		SourceID:    ptr("abc123"),
		Brand:       ptr("AcmeCo"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ID == "" {
		t.Error("expected generated id")
	}

	items, err := db.ListSelections(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 selection, got %d", len(items))
	}
	if items[0].AIHeadline != nil {
		t.Errorf("expected nil ai_headline, got %q", *items[0].AIHeadline)
	}
	if items[0].Headline != "Experts Reveal Why 55+ Love This" {
		t.Errorf("unexpected headline %q", items[0].Headline)
	}
}

func TestAddSelectionValidation(t *testing.T) {
	db := openTestDB(t)

	_, err := db.AddSelection(RequestContext{}, NewSelection{Headline: "x", SourceTable: "scrape_data"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing user, got %v", err)
	}

	_, err = db.AddSelection(alice, NewSelection{Headline: "   ", SourceTable: "scrape_data"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for empty headline, got %v", err)
	}

	items, _ := db.ListSelections(alice)
	if len(items) != 0 {
		t.Errorf("expected no rows after rejected adds, got %d", len(items))
	}
}

func TestAddSelectionSameSourceTwice(t *testing.T) {
	db := openTestDB(t)
	first, _ := db.AddSelection(alice, NewSelection{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})
	second, err := db.AddSelection(alice, NewSelection{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected existing selection %s, got %s", first.ID, second.ID)
	}
	items, _ := db.ListSelections(alice)
	if len(items) != 1 {
		t.Errorf("expected 1 selection, got %d", len(items))
	}
}

func TestListSelectionsOrderAndScope(t *testing.T) {
	db := openTestDB(t)
	db.AddSelection(alice, NewSelection{Headline: "First", SourceTable: "scrape_data", SourceID: ptr("1")})
	db.AddSelection(alice, NewSelection{Headline: "Second", SourceTable: "scrape_data", SourceID: ptr("2")})
	db.AddSelection(bob, NewSelection{Headline: "Bob's", SourceTable: "scrape_data", SourceID: ptr("3")})

	items, err := db.ListSelections(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	for _, s := range items {
		got = append(got, s.Headline)
	}
	if diff := cmp.Diff([]string{"Second", "First"}, got); diff != "" {
		t.Errorf("selection order mismatch (-want +got):\n%s", diff)
	}

	empty, err := db.ListSelections(RequestContext{User: "carol"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestRemoveSelection(t *testing.T) {
	db := openTestDB(t)
	s, _ := db.AddSelection(alice, NewSelection{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})

	// Another user cannot remove it.
	if err := db.RemoveSelection(bob, s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items, _ := db.ListSelections(alice); len(items) != 1 {
		t.Fatal("expected selection to survive another user's delete")
	}

	if err := db.RemoveSelection(alice, s.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.RemoveSelection(alice, s.ID); err != nil {
		t.Errorf("expected idempotent remove, got %v", err)
	}
	if items, _ := db.ListSelections(alice); len(items) != 0 {
		t.Errorf("expected 0 selections, got %d", len(items))
	}
}

func TestRemoveSelectionBySource(t *testing.T) {
	db := openTestDB(t)
	db.AddSelection(alice, NewSelection{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})
	db.AddSelection(alice, NewSelection{Headline: "B", SourceTable: "anstrex_data", SourceID: ptr("1")})

	if err := db.RemoveSelectionBySource(alice, "scrape_data", "1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := db.ListSelections(alice)
	if len(items) != 1 || items[0].SourceTable != "anstrex_data" {
		t.Errorf("expected only anstrex_data selection left, got %+v", items)
	}

	ids, _ := db.SelectedSourceIDs(alice, "anstrex_data")
	if !ids["1"] {
		t.Error("expected source id 1 to be marked selected")
	}
}

func TestClearSelections(t *testing.T) {
	db := openTestDB(t)
	db.AddSelection(alice, NewSelection{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})
	db.AddSelection(alice, NewSelection{Headline: "B", SourceTable: "scrape_data", SourceID: ptr("2")})
	db.AddSelection(bob, NewSelection{Headline: "C", SourceTable: "scrape_data", SourceID: ptr("3")})

	if err := db.ClearSelections(alice); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items, _ := db.ListSelections(alice); len(items) != 0 {
		t.Errorf("expected 0 selections for alice, got %d", len(items))
	}
	if items, _ := db.ListSelections(bob); len(items) != 1 {
		t.Errorf("expected bob's selection untouched, got %d", len(items))
	}
}

func TestSaveSelectionResultReplacesAIHeadline(t *testing.T) {
	db := openTestDB(t)
	s, _ := db.AddSelection(alice, NewSelection{Headline: "Orig", SourceTable: "scrape_data", SourceID: ptr("abc")})

	for _, ai := range []string{"First Hearing Aid Take", "Second Hearing Aid Take"} {
		if _, err := db.SaveSelectionResult(alice, SelectionResult{
			Headline: "Orig", SourceTable: "scrape_data", SourceID: ptr("abc"), AIHeadline: ai,
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, _ := db.GetSelection(alice, s.ID)
	if got == nil || got.AIHeadline == nil || *got.AIHeadline != "Second Hearing Aid Take" {
		t.Errorf("expected latest ai headline, got %+v", got)
	}
	if items, _ := db.ListSelections(alice); len(items) != 1 {
		t.Errorf("expected 1 selection row, got %d", len(items))
	}
	log, _ := db.ListGenerated(0)
	if len(log) != 2 {
		t.Errorf("expected 2 log entries, got %d", len(log))
	}
}

func TestSaveSelectionResultCompositeKey(t *testing.T) {
	db := openTestDB(t)
	db.AddSelection(alice, NewSelection{Headline: "Scrape", SourceTable: "scrape_data", SourceID: ptr("42")})
	db.AddSelection(alice, NewSelection{Headline: "Anstrex", SourceTable: "anstrex_data", SourceID: ptr("42")})

	db.SaveSelectionResult(alice, SelectionResult{
		Headline: "Scrape", SourceTable: "scrape_data", SourceID: ptr("42"), AIHeadline: "New Hearing Aid",
	})

	items, _ := db.ListSelections(alice)
	for _, s := range items {
		switch s.SourceTable {
		case "scrape_data":
			if s.AIHeadline == nil {
				t.Error("expected scrape_data row to be updated")
			}
		case "anstrex_data":
			if s.AIHeadline != nil {
				t.Error("same source id in another table must not be overwritten")
			}
		}
	}
}

func TestSaveSelectionResultWithoutSourceID(t *testing.T) {
	db := openTestDB(t)
	db.AddSelection(alice, NewSelection{Headline: "No Id Here", SourceTable: "top_20"})

	if _, err := db.SaveSelectionResult(alice, SelectionResult{
		Headline: "No Id Here", SourceTable: "top_20", AIHeadline: "Hearing Aids Here",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := db.ListSelections(alice)
	if len(items) != 1 {
		t.Fatalf("expected the null-source row to be updated in place, got %d rows", len(items))
	}
	if items[0].AIHeadline == nil || *items[0].AIHeadline != "Hearing Aids Here" {
		t.Errorf("unexpected ai headline %+v", items[0].AIHeadline)
	}
}

func TestSaveSelectionResultRejectsEmpty(t *testing.T) {
	db := openTestDB(t)
	_, err := db.SaveSelectionResult(alice, SelectionResult{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if log, _ := db.ListGenerated(0); len(log) != 0 {
		t.Errorf("expected no log entries, got %d", len(log))
	}
}

func TestUpsertOverrideLastWriteWins(t *testing.T) {
	db := openTestDB(t)
	for i, ai := range []string{"one", "two", "three"} {
		_, err := db.UpsertOverride(alice, Override{
			SourceID: "src", Week: 7, Year: 2026, Headline: "H", Frequency: 10 + i, AIHeadline: ptr(ai),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	overrides, err := db.ListOverrides(alice, 7, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overrides) != 1 {
		t.Fatalf("expected 1 override row, got %d", len(overrides))
	}
	if *overrides[0].AIHeadline != "three" || overrides[0].Frequency != 12 {
		t.Errorf("expected values from the last upsert, got %+v", overrides[0])
	}
}

func TestMergeOverrides(t *testing.T) {
	aggregate := []WeeklyHeadline{
		{SourceID: "X", Headline: "h", Week: 7, Year: 2026, Frequency: 9, AIHeadline: ptr("A"), ID: ptr("I")},
		{SourceID: "Y", Headline: "g", Week: 7, Year: 2026, Frequency: 3, AIHeadline: ptr("C"), ID: ptr("K")},
	}
	overrides := []Override{
		{ID: "J", SourceID: "X", Week: 7, Year: 2026, User: "alice", AIHeadline: ptr("B")},
		{ID: "L", SourceID: "Y", Week: 7, Year: 2026, User: "alice"}, // no ai headline: ignored
	}

	merged := MergeOverrides(aggregate, overrides)
	want := []WeeklyHeadline{
		{SourceID: "X", Headline: "h", Week: 7, Year: 2026, Frequency: 9, AIHeadline: ptr("B"), ID: ptr("J")},
		{SourceID: "Y", Headline: "g", Week: 7, Year: 2026, Frequency: 3, AIHeadline: ptr("C"), ID: ptr("K")},
	}
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
	if *aggregate[0].AIHeadline != "A" {
		t.Error("merge must not modify the aggregate")
	}
}

func TestTopHeadlinesForUser(t *testing.T) {
	db := openTestDB(t)
	db.InsertWeeklyHeadline(WeeklyHeadline{SourceID: "X", Headline: "h", Week: 7, Year: 2026, Frequency: 9, AIHeadline: ptr("A"), ID: ptr("I")})
	db.InsertWeeklyHeadline(WeeklyHeadline{SourceID: "Z", Headline: "z", Week: 7, Year: 2026, Frequency: 20})

	if _, err := db.SaveOverrideResult(alice, Override{
		SourceID: "X", Week: 7, Year: 2026, Headline: "h", Frequency: 9, AIHeadline: ptr("B"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	top, err := db.TopHeadlinesForUser(alice, 7, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if top.NumOverrides != 1 {
		t.Errorf("expected 1 override, got %d", top.NumOverrides)
	}
	if len(top.Items) != 2 || top.Items[0].SourceID != "Z" {
		t.Fatalf("expected frequency ordering, got %+v", top.Items)
	}
	x := top.Items[1]
	if *x.AIHeadline != "B" || *x.ID == "I" {
		t.Errorf("expected override values for alice, got %+v", x)
	}

	other, _ := db.TopHeadlinesForUser(bob, 7, 2026)
	if *other.Items[1].AIHeadline != "A" || *other.Items[1].ID != "I" {
		t.Errorf("expected aggregate values for bob, got %+v", other.Items[1])
	}

	// Shared aggregate untouched.
	row, _ := db.GetWeeklyHeadline("X", 7, 2026)
	if *row.AIHeadline != "A" {
		t.Errorf("aggregate was mutated: %q", *row.AIHeadline)
	}

	// Override id doubles as the log entry id.
	log, _ := db.ListGenerated(0)
	if len(log) != 1 || log[0].ID != *x.ID {
		t.Errorf("expected log entry sharing override id, got %+v", log)
	}
}

func TestListWeeks(t *testing.T) {
	db := openTestDB(t)
	db.InsertWeeklyHeadline(WeeklyHeadline{SourceID: "a", Headline: "a", Week: 52, Year: 2025})
	db.InsertWeeklyHeadline(WeeklyHeadline{SourceID: "b", Headline: "b", Week: 3, Year: 2026})
	db.InsertWeeklyHeadline(WeeklyHeadline{SourceID: "c", Headline: "c", Week: 3, Year: 2026})

	weeks, err := db.ListWeeks()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []WeekKey{{Week: 3, Year: 2026}, {Week: 52, Year: 2025}}
	if diff := cmp.Diff(want, weeks); diff != "" {
		t.Errorf("weeks mismatch (-want +got):\n%s", diff)
	}
}

func TestFavoriteToggleSelfInverse(t *testing.T) {
	db := openTestDB(t)
	snap := Snapshot{AIHeadline: "Hearing Aids Rock", Headline: "Cars Rock"}

	on, err := db.ToggleFavorite(alice, "row-1", "selected", snap)
	if err != nil || !on {
		t.Fatalf("expected favorite on, got %v %v", on, err)
	}
	if fav, _ := db.IsFavorite(alice, "row-1"); !fav {
		t.Error("expected IsFavorite true")
	}
	if fav, _ := db.IsFavorite(bob, "row-1"); fav {
		t.Error("favorites must be scoped per user")
	}

	off, err := db.ToggleFavorite(alice, "row-1", "selected", snap)
	if err != nil || off {
		t.Fatalf("expected favorite off, got %v %v", off, err)
	}
	items, _ := db.ListFavorites(alice)
	if len(items) != 0 {
		t.Errorf("expected zero net rows, got %d", len(items))
	}
}

func TestFavoriteStats(t *testing.T) {
	db := openTestDB(t)
	db.ToggleFavorite(alice, "1", "selected", Snapshot{AIHeadline: "a", Headline: "same"})
	db.ToggleFavorite(alice, "2", "top_weekly_headlines", Snapshot{AIHeadline: "b", Headline: "same"})
	db.ToggleFavorite(alice, "3", "selected", Snapshot{AIHeadline: "c", Headline: "other"})

	stats, err := db.GetFavoriteStats(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &FavoriteStats{Total: 3, UniqueOriginals: 2, Sources: 2}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratedStats(t *testing.T) {
	db := openTestDB(t)
	stats, _ := db.GetGeneratedStats()
	if stats.Total != 0 || stats.AverageLength != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}

	db.SaveSelectionResult(alice, SelectionResult{Headline: "a", SourceTable: "t", SourceID: ptr("1"), AIHeadline: "1234"})
	db.SaveSelectionResult(alice, SelectionResult{Headline: "b", SourceTable: "t", SourceID: ptr("2"), AIHeadline: "12345678"})

	stats, _ = db.GetGeneratedStats()
	if stats.Total != 2 || stats.AverageLength != 6 {
		t.Errorf("expected total 2 avg 6, got %+v", stats)
	}

	latest, _ := db.ListGenerated(1)
	if len(latest) != 1 || latest[0].AIHeadline != "12345678" {
		t.Errorf("expected newest entry first, got %+v", latest)
	}
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	stats, err := db.GetStats(alice)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Selected != 0 {
		t.Errorf("expected 0 selected, got %d", stats.Selected)
	}

	db.AddSelection(alice, NewSelection{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1")})
	db.SaveSelectionResult(alice, SelectionResult{Headline: "A", SourceTable: "scrape_data", SourceID: ptr("1"), AIHeadline: "AA"})
	db.InsertWeeklyHeadline(WeeklyHeadline{SourceID: "x", Headline: "x", Week: 1, Year: 2026})

	stats, _ = db.GetStats(alice)
	want := &Stats{Selected: 1, SelectedGenerated: 1, TotalGenerated: 1, WeeksAvailable: 1}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestWeekHelpers(t *testing.T) {
	k := WeekOf(time.Date(2026, time.February, 11, 12, 0, 0, 0, time.UTC))
	if k.Week != 7 || k.Year != 2026 {
		t.Errorf("expected week 7 of 2026, got %+v", k)
	}
	if got := k.Monday().Format("2006-01-02"); got != "2026-02-09" {
		t.Errorf("expected Monday 2026-02-09, got %s", got)
	}
	if got := FormatWeekDisplay(k); got != "Feb 09 - Feb 15, 2026" {
		t.Errorf("unexpected display %q", got)
	}
	if (WeekKey{Week: 0, Year: 2026}).Valid() {
		t.Error("week 0 should be invalid")
	}
	if cur := CurrentWeek(); !cur.Valid() {
		t.Errorf("current week invalid: %+v", cur)
	}
}
