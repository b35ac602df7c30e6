package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hurttlocker/chronicle/internal/extract"
)

// UpsertEvents inserts or merges a batch of events in one transaction.
// Existing events are merged: scalar fields are overwritten by the
// incoming event, list fields are unioned (deduplicated by natural
// key), identifiers fill gaps only, attachments are deduplicated by
// storage path.
func (s *SQLiteStore) UpsertEvents(ctx context.Context, events []*Event) (*UpsertReport, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	report := &UpsertReport{}
	for _, ev := range events {
		if ev.ID == "" {
			return nil, fmt.Errorf("event %q has no id", ev.Title)
		}
		existing, err := getEventTx(ctx, tx, ev.ID)
		switch {
		case errors.Is(err, ErrNotFound):
			if err := insertEvent(ctx, tx, ev); err != nil {
				return nil, err
			}
			report.Added++
		case err != nil:
			return nil, err
		default:
			merged := mergeIntoExisting(existing, ev)
			if err := updateEvent(ctx, tx, merged); err != nil {
				return nil, err
			}
			if err := upsertAttachments(ctx, tx, merged.ID, existing.Attachments, ev.Attachments); err != nil {
				return nil, err
			}
			report.Merged++
			continue
		}
		if err := upsertAttachments(ctx, tx, ev.ID, nil, ev.Attachments); err != nil {
			return nil, err
		}
	}

	// Side tables are fed from every event in the batch.
	for _, ev := range events {
		if err := recordIdentifiers(ctx, tx, ev); err != nil {
			return nil, err
		}
		if err := recordEntities(ctx, tx, ev); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing upsert: %w", err)
	}
	return report, nil
}

// mergeIntoExisting applies re-ingestion merge rules: incoming scalars
// win, lists union, identifiers fill gaps.
func mergeIntoExisting(old, in *Event) *Event {
	merged := *in
	merged.CreatedAt = old.CreatedAt
	merged.Personnel = unionPersonnel(old.Personnel, in.Personnel)
	merged.Facilities = unionFacilities(old.Facilities, in.Facilities)
	merged.ClinicalEvents = unionClinical(old.ClinicalEvents, in.ClinicalEvents)
	merged.CategoryLinks = unionCategories(old.CategoryLinks, in.CategoryLinks)
	merged.SupportLinks = unionSupports(old.SupportLinks, in.SupportLinks)
	merged.Identifiers = fillIdentifierGaps(old.Identifiers, in.Identifiers)
	merged.Tags = unionStrings(old.Tags, in.Tags)
	merged.Links = fillMapGaps(in.Links, old.Links)
	return &merged
}

func unionPersonnel(a, b []extract.PersonnelRef) []extract.PersonnelRef {
	out := append([]extract.PersonnelRef{}, a...)
	seen := make(map[string]bool, len(a))
	for _, p := range a {
		seen[p.Name] = true
	}
	for _, p := range b {
		if !seen[p.Name] {
			seen[p.Name] = true
			out = append(out, p)
		}
	}
	return out
}

func unionFacilities(a, b []extract.FacilityRef) []extract.FacilityRef {
	out := append([]extract.FacilityRef{}, a...)
	seen := make(map[string]bool, len(a))
	for _, f := range a {
		seen[f.Name] = true
	}
	for _, f := range b {
		if !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	return out
}

func unionClinical(a, b []extract.ClinicalEvent) []extract.ClinicalEvent {
	out := append([]extract.ClinicalEvent{}, a...)
	seen := make(map[string]bool, len(a))
	for _, c := range a {
		seen[c.Content] = true
	}
	for _, c := range b {
		if !seen[c.Content] {
			seen[c.Content] = true
			out = append(out, c)
		}
	}
	return out
}

func unionCategories(a, b []extract.CategoryLink) []extract.CategoryLink {
	out := append([]extract.CategoryLink{}, a...)
	seen := make(map[string]bool, len(a))
	for _, c := range a {
		seen[c.Category] = true
	}
	for _, c := range b {
		if !seen[c.Category] {
			seen[c.Category] = true
			out = append(out, c)
		}
	}
	return out
}

func unionSupports(a, b []extract.SupportLink) []extract.SupportLink {
	out := append([]extract.SupportLink{}, a...)
	seen := make(map[string]bool, len(a))
	for _, su := range a {
		seen[su.Support] = true
	}
	for _, su := range b {
		if !seen[su.Support] {
			seen[su.Support] = true
			out = append(out, su)
		}
	}
	return out
}

func unionStrings(a, b []string) []string {
	out := append([]string{}, a...)
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// fillIdentifierGaps keeps every existing key and adds only the keys
// the existing map lacks. Conflicting values never overwrite.
func fillIdentifierGaps(existing, incoming map[string]string) map[string]string {
	return fillMapGaps(existing, incoming)
}

func fillMapGaps(keep, add map[string]string) map[string]string {
	if keep == nil && add == nil {
		return nil
	}
	out := make(map[string]string, len(keep)+len(add))
	for k, v := range keep {
		out[k] = v
	}
	for k, v := range add {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func insertEvent(ctx context.Context, tx *sql.Tx, ev *Event) error {
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	cols, err := marshalEventColumns(ev)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, source_ref, date, title, content, specialty, specialty_confidence,
			personnel, facilities, clinical_events, category_links, support_links,
			identifiers, links, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SourceRef, ev.Date, ev.Title, ev.Content, ev.Specialty, ev.SpecialtyConf,
		cols.personnel, cols.facilities, cols.clinical, cols.categories, cols.supports,
		cols.identifiers, cols.links, cols.tags, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting event %s: %w", ev.ID, err)
	}
	return nil
}

func updateEvent(ctx context.Context, tx *sql.Tx, ev *Event) error {
	ev.UpdatedAt = time.Now().UTC()
	cols, err := marshalEventColumns(ev)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE events SET source_ref=?, date=?, title=?, content=?, specialty=?, specialty_confidence=?,
			personnel=?, facilities=?, clinical_events=?, category_links=?, support_links=?,
			identifiers=?, links=?, tags=?, updated_at=?
		WHERE id=?`,
		ev.SourceRef, ev.Date, ev.Title, ev.Content, ev.Specialty, ev.SpecialtyConf,
		cols.personnel, cols.facilities, cols.clinical, cols.categories, cols.supports,
		cols.identifiers, cols.links, cols.tags, ev.UpdatedAt, ev.ID)
	if err != nil {
		return fmt.Errorf("updating event %s: %w", ev.ID, err)
	}
	return nil
}

// upsertAttachments inserts incoming attachments that the event does
// not already hold. Dedup key is storage path, falling back to file
// name when the path is empty.
func upsertAttachments(ctx context.Context, tx *sql.Tx, eventID string, existing, incoming []Attachment) error {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[attachmentKey(a)] = true
	}
	for _, a := range incoming {
		key := attachmentKey(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		var info any
		if a.MedicalInfo != nil {
			data, err := json.Marshal(a.MedicalInfo)
			if err != nil {
				return fmt.Errorf("marshaling attachment info: %w", err)
			}
			info = string(data)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attachments (event_id, file_name, mime_type, storage_path, extracted_text, medical_info, processed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			eventID, a.FileName, a.MimeType, a.StoragePath, a.ExtractedText, info, a.ProcessedAt)
		if err != nil {
			return fmt.Errorf("inserting attachment %s: %w", a.FileName, err)
		}
	}
	return nil
}

func attachmentKey(a Attachment) string {
	if a.StoragePath != "" {
		return a.StoragePath
	}
	return a.FileName
}

// GetEvent returns one event with its attachments, or ErrNotFound.
func (s *SQLiteStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	return getEventTx(ctx, tx, id)
}

func getEventTx(ctx context.Context, tx *sql.Tx, id string) (*Event, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, source_ref, date, title, content, specialty, specialty_confidence,
			personnel, facilities, clinical_events, category_links, support_links,
			identifiers, links, tags, created_at, updated_at
		FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		return nil, err
	}
	ev.Attachments, err = loadAttachments(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ListEvents returns all events in chronological order. Dates are
// YYYY-MM-DD strings so lexicographic ordering is chronological;
// id breaks ties for a deterministic timeline.
func (s *SQLiteStore) ListEvents(ctx context.Context) ([]*Event, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, source_ref, date, title, content, specialty, specialty_confidence,
			personnel, facilities, clinical_events, category_links, support_links,
			identifiers, links, tags, created_at, updated_at
		FROM events ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, ev := range events {
		ev.Attachments, err = loadAttachments(ctx, tx, ev.ID)
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

// EditEvent applies a partial scalar update. Extracted facts are
// never editable here; they are owned by the pipeline.
func (s *SQLiteStore) EditEvent(ctx context.Context, id string, edit EventEdit) error {
	return s.withBackup(ctx, func(tx *sql.Tx) error {
		ev, err := getEventTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if edit.Title != nil {
			ev.Title = *edit.Title
		}
		if edit.Date != nil {
			if _, err := time.Parse("2006-01-02", *edit.Date); err != nil {
				return fmt.Errorf("invalid date %q: %w", *edit.Date, err)
			}
			ev.Date = *edit.Date
		}
		if edit.Content != nil {
			ev.Content = *edit.Content
		}
		if edit.Specialty != nil {
			ev.Specialty = *edit.Specialty
		}
		return updateEvent(ctx, tx, ev)
	})
}

// DeleteEvent removes an event; attachments cascade.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	return s.withBackup(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting event %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func loadAttachments(ctx context.Context, tx *sql.Tx, eventID string) ([]Attachment, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, event_id, file_name, mime_type, storage_path, extracted_text, medical_info, processed_at
		FROM attachments WHERE event_id = ? ORDER BY id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("loading attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var a Attachment
		var info sql.NullString
		var processed sql.NullTime
		if err := rows.Scan(&a.ID, &a.EventID, &a.FileName, &a.MimeType, &a.StoragePath,
			&a.ExtractedText, &info, &processed); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		if info.Valid && info.String != "" {
			var facts extract.MedicalFacts
			if err := json.Unmarshal([]byte(info.String), &facts); err == nil {
				a.MedicalInfo = &facts
			}
		}
		if processed.Valid {
			t := processed.Time
			a.ProcessedAt = &t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// eventColumns holds the JSON-serialized list/map columns.
type eventColumns struct {
	personnel   string
	facilities  string
	clinical    string
	categories  string
	supports    string
	identifiers string
	links       string
	tags        string
}

func marshalEventColumns(ev *Event) (*eventColumns, error) {
	c := &eventColumns{}
	fields := []struct {
		dst   *string
		src   any
		empty string
	}{
		{&c.personnel, ev.Personnel, "[]"},
		{&c.facilities, ev.Facilities, "[]"},
		{&c.clinical, ev.ClinicalEvents, "[]"},
		{&c.categories, ev.CategoryLinks, "[]"},
		{&c.supports, ev.SupportLinks, "[]"},
		{&c.identifiers, ev.Identifiers, "{}"},
		{&c.links, ev.Links, "{}"},
		{&c.tags, ev.Tags, "[]"},
	}
	for _, f := range fields {
		data, err := json.Marshal(f.src)
		if err != nil {
			return nil, fmt.Errorf("marshaling event field: %w", err)
		}
		s := string(data)
		if s == "null" {
			s = f.empty
		}
		*f.dst = s
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var ev Event
	var personnel, facilities, clinical, categories, supports, identifiers, links, tags string
	err := row.Scan(&ev.ID, &ev.SourceRef, &ev.Date, &ev.Title, &ev.Content,
		&ev.Specialty, &ev.SpecialtyConf,
		&personnel, &facilities, &clinical, &categories, &supports,
		&identifiers, &links, &tags, &ev.CreatedAt, &ev.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}

	unmarshals := []struct {
		data string
		dst  any
	}{
		{personnel, &ev.Personnel},
		{facilities, &ev.Facilities},
		{clinical, &ev.ClinicalEvents},
		{categories, &ev.CategoryLinks},
		{supports, &ev.SupportLinks},
		{identifiers, &ev.Identifiers},
		{links, &ev.Links},
		{tags, &ev.Tags},
	}
	for _, u := range unmarshals {
		if u.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(u.data), u.dst); err != nil {
			return nil, fmt.Errorf("unmarshaling event %s field: %w", ev.ID, err)
		}
	}
	return &ev, nil
}
