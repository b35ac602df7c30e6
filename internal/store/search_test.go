package store

import (
	"context"
	"testing"

	"github.com/hurttlocker/chronicle/internal/taxonomy"
)

func TestSearchEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events := []*Event{
		testEvent("a", "2020-01-01", "Cardiology review", "Echo showed mild regurgitation."),
		testEvent("b", "2020-02-01", "Physiotherapy session", "Worked on standing transfers."),
		testEvent("c", "2020-03-01", "Seizure clinic", "Discussed rescue medication."),
	}
	if _, err := s.UpsertEvents(ctx, events); err != nil {
		t.Fatalf("UpsertEvents: %v", err)
	}

	results, err := s.SearchEvents(ctx, "cardiology", 10)
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(results) != 1 || results[0].Event.ID != "a" {
		t.Fatalf("results = %+v, want event a", results)
	}

	// Porter stemming: "transfers" should match "transfer".
	results, err = s.SearchEvents(ctx, "transfer", 10)
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(results) != 1 || results[0].Event.ID != "b" {
		t.Errorf("stemmed results = %+v, want event b", results)
	}

	results, err = s.SearchEvents(ctx, "zzzznothing", 10)
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchIndexFollowsUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertEvents(ctx, []*Event{testEvent("a", "2020-01-01", "Dermatology", "Rash settling.")}); err != nil {
		t.Fatalf("UpsertEvents: %v", err)
	}
	title := "Nephrology"
	if err := s.EditEvent(ctx, "a", EventEdit{Title: &title}); err != nil {
		t.Fatalf("EditEvent: %v", err)
	}

	results, err := s.SearchEvents(ctx, "dermatology", 10)
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(results) != 0 {
		t.Error("index still matches old title")
	}
	results, err = s.SearchEvents(ctx, "nephrology", 10)
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(results) != 1 {
		t.Error("index missed new title")
	}
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"seizure", `"seizure"`},
		{"rescue medication", `"rescue" "medication"`},
		{`a "quoted" term`, `"a" ` + `"""quoted"""` + ` "term"`},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := buildMatchQuery(tt.in); got != tt.want {
			t.Errorf("buildMatchQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategoryOverrides(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := taxonomy.Category{
		Name:        "Respiratory",
		Description: "Updated respiratory needs",
		Severity:    taxonomy.SeveritySevere,
		Keywords:    []string{"oxygen", "suction", "tracheostomy"},
		Details:     []string{"Overnight oxygen in use"},
	}
	if err := s.SaveCategoryOverride(ctx, c); err != nil {
		t.Fatalf("SaveCategoryOverride: %v", err)
	}

	overrides, err := s.CategoryOverrides(ctx)
	if err != nil {
		t.Fatalf("CategoryOverrides: %v", err)
	}
	if len(overrides) != 1 || overrides[0].Description != "Updated respiratory needs" {
		t.Fatalf("overrides = %+v", overrides)
	}

	// Saving again replaces, not duplicates.
	c.Severity = taxonomy.SeverityHigh
	if err := s.SaveCategoryOverride(ctx, c); err != nil {
		t.Fatalf("resave: %v", err)
	}
	overrides, _ = s.CategoryOverrides(ctx)
	if len(overrides) != 1 || overrides[0].Severity != taxonomy.SeverityHigh {
		t.Errorf("after resave = %+v", overrides)
	}

	deleted, err := s.DeleteCategoryOverride(ctx, "Respiratory")
	if err != nil {
		t.Fatalf("DeleteCategoryOverride: %v", err)
	}
	if !deleted {
		t.Error("expected delete to report a removed row")
	}
	deleted, _ = s.DeleteCategoryOverride(ctx, "Respiratory")
	if deleted {
		t.Error("second delete reported a removed row")
	}
}

func TestSaveCategoryOverrideValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCategoryOverride(ctx, taxonomy.Category{Name: " ", Severity: taxonomy.SeverityHigh}); err == nil {
		t.Error("expected error for blank name")
	}
	if err := s.SaveCategoryOverride(ctx, taxonomy.Category{Name: "X", Severity: "EXTREME"}); err == nil {
		t.Error("expected error for invalid severity")
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.EventCount != 0 {
		t.Errorf("empty store event count = %d", st.EventCount)
	}

	a := testEvent("a", "2019-05-01", "First", "")
	a.Identifiers = map[string]string{"nhs_number": "1"}
	a.Attachments = []Attachment{{FileName: "x.pdf", StoragePath: "/x.pdf"}}
	b := testEvent("b", "2021-09-15", "Last", "")
	if _, err := s.UpsertEvents(ctx, []*Event{a, b}); err != nil {
		t.Fatalf("UpsertEvents: %v", err)
	}

	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.EventCount != 2 || st.AttachmentCount != 1 || st.IdentifierCount != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.EarliestDate != "2019-05-01" || st.LatestDate != "2021-09-15" {
		t.Errorf("date range = %s .. %s", st.EarliestDate, st.LatestDate)
	}
	if st.DBSizeBytes <= 0 {
		t.Errorf("db size = %d", st.DBSizeBytes)
	}
}
