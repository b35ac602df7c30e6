// Package ingest drives the archive pipeline: normalize source notes,
// extract medical facts, analyze attachments, merge everything into
// the knowledge store, then rebuild the semantic index best-effort.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hurttlocker/chronicle/internal/attach"
	"github.com/hurttlocker/chronicle/internal/extract"
	"github.com/hurttlocker/chronicle/internal/notes"
	"github.com/hurttlocker/chronicle/internal/semantic"
	"github.com/hurttlocker/chronicle/internal/store"
)

// Report summarizes one ingestion run.
type Report struct {
	Ingested             int  `json:"ingested"`
	Merged               int  `json:"merged"`
	Dropped              int  `json:"dropped"`
	AttachmentsProcessed int  `json:"attachments_processed"`
	AttachmentsFromCache int  `json:"attachments_from_cache"`
	SemanticRebuilt      bool `json:"semantic_rebuilt"`
}

// Options tunes the pipeline.
type Options struct {
	AttachmentDir     string        // where attachment bytes are materialized; empty keeps them in memory only
	AttachmentWorkers int           // default 4
	AttachmentTimeout time.Duration // per attachment, default 2 minutes
}

func (o *Options) normalize() {
	if o.AttachmentWorkers <= 0 {
		o.AttachmentWorkers = 4
	}
	if o.AttachmentTimeout <= 0 {
		o.AttachmentTimeout = 2 * time.Minute
	}
}

// Runner wires the pipeline stages together. The semantic index is
// optional; everything else is required.
type Runner struct {
	store     store.Store
	extractor *extract.Extractor
	analyzer  *attach.Analyzer
	semantic  *semantic.Index
	logger    *zap.SugaredLogger
	opts      Options
}

// NewRunner creates a pipeline runner.
func NewRunner(st store.Store, ex *extract.Extractor, an *attach.Analyzer, sem *semantic.Index, logger *zap.SugaredLogger, opts Options) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	opts.normalize()
	return &Runner{store: st, extractor: ex, analyzer: an, semantic: sem, logger: logger, opts: opts}
}

// Run ingests every note the source yields. Unparseable notes are
// dropped and counted; attachment failures degrade that attachment
// only. Only a store write failure fails the run.
func (r *Runner) Run(ctx context.Context, source notes.Source) (*Report, error) {
	batchID := uuid.New().String()
	log := r.logger.With("batch", batchID)
	started := time.Now()

	raw, err := source.Notes(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	log.Infow("source read", "notes", len(raw))

	report := &Report{}
	var events []*store.Event
	var jobs []attachmentJob
	for _, rn := range raw {
		note, ok := notes.Normalize(rn)
		if !ok {
			report.Dropped++
			continue
		}
		ev, evJobs := r.buildEvent(note, log)
		events = append(events, ev)
		jobs = append(jobs, evJobs...)
	}
	log.Infow("notes normalized", "events", len(events), "dropped", report.Dropped)

	r.analyzeAttachments(ctx, jobs, report, log)

	// The merge pass is the only stage that must be serialized.
	upsert, err := r.store.UpsertEvents(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("merging events: %w", err)
	}
	report.Ingested = upsert.Added
	report.Merged = upsert.Merged
	log.Infow("events merged", "added", upsert.Added, "merged", upsert.Merged)

	r.rebuildSemantic(ctx, report, log)

	log.Infow("ingestion complete",
		"ingested", report.Ingested,
		"merged", report.Merged,
		"dropped", report.Dropped,
		"attachments", report.AttachmentsProcessed,
		"duration", time.Since(started))
	return report, nil
}

// buildEvent runs fact extraction over one normalized note and
// stages its attachments as analysis jobs.
func (r *Runner) buildEvent(note notes.Note, log *zap.SugaredLogger) (*store.Event, []attachmentJob) {
	facts := r.extractor.Extract(note.Title, note.Content)

	ev := &store.Event{
		ID:             note.ID,
		SourceRef:      note.SourceRef,
		Date:           note.Date,
		Title:          note.Title,
		Content:        note.Content,
		Specialty:      facts.Specialty.Name,
		SpecialtyConf:  facts.Specialty.Confidence,
		Personnel:      facts.Personnel,
		Facilities:     facts.Facilities,
		ClinicalEvents: facts.ClinicalEvents,
		CategoryLinks:  facts.CategoryLinks,
		SupportLinks:   facts.SupportLinks,
		Identifiers:    facts.Identifiers,
		Links:          note.Links,
		Tags:           note.Tags,
		CreatedAt:      note.CreatedAt,
	}
	var jobs []attachmentJob
	for _, res := range note.Resources {
		att := store.Attachment{
			FileName: res.FileName,
			MimeType: res.MimeType,
		}
		att.StoragePath = r.materialize(note.ID, res, log)
		ev.Attachments = append(ev.Attachments, att)
		jobs = append(jobs, attachmentJob{event: ev, index: len(ev.Attachments) - 1, data: res.Data})
	}
	return ev, jobs
}

// materialize writes attachment bytes under the attachment directory
// so the analysis cache has a stable path to key on. Without a
// directory the bytes stay in memory and the analysis runs uncached.
func (r *Runner) materialize(noteID string, res notes.Resource, log *zap.SugaredLogger) string {
	if r.opts.AttachmentDir == "" || len(res.Data) == 0 {
		return ""
	}
	dir := filepath.Join(r.opts.AttachmentDir, noteID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warnw("creating attachment directory failed", "dir", dir, "error", err)
		return ""
	}
	path := filepath.Join(dir, filepath.Base(res.FileName))
	if err := os.WriteFile(path, res.Data, 0644); err != nil {
		log.Warnw("writing attachment failed", "path", path, "error", err)
		return ""
	}
	return path
}

// attachmentJob addresses one attachment inside the event batch.
type attachmentJob struct {
	event *store.Event
	index int
	data  []byte
}

// analyzeAttachments fans attachment analysis out over a bounded
// worker pool. Each job gets its own timeout and panic recovery; a
// failed job degrades that one attachment and the batch continues.
func (r *Runner) analyzeAttachments(ctx context.Context, jobs []attachmentJob, report *Report, log *zap.SugaredLogger) {
	if r.analyzer == nil || len(jobs) == 0 {
		return
	}

	jobCh := make(chan attachmentJob)
	var wg sync.WaitGroup
	var mu sync.Mutex // guards report counters

	for w := 0; w < r.opts.AttachmentWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				r.runAttachmentJob(ctx, job, report, &mu, log)
			}
		}()
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return
		case jobCh <- job:
		}
	}
	close(jobCh)
	wg.Wait()
}

func (r *Runner) runAttachmentJob(ctx context.Context, job attachmentJob, report *Report, mu *sync.Mutex, log *zap.SugaredLogger) {
	att := &job.event.Attachments[job.index]

	jobCtx, cancel := context.WithTimeout(ctx, r.opts.AttachmentTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			log.Warnw("attachment analysis panicked",
				"file", att.FileName, "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	analysis := r.analyzer.Analyze(jobCtx, attach.Input{
		FileName:    att.FileName,
		MimeType:    att.MimeType,
		StoragePath: att.StoragePath,
		Data:        job.data,
	})

	att.ExtractedText = analysis.ExtractedText
	att.MedicalInfo = &analysis.MedicalInfo
	processed := analysis.ProcessedAt
	att.ProcessedAt = &processed

	mu.Lock()
	report.AttachmentsProcessed++
	if analysis.FromCache {
		report.AttachmentsFromCache++
	}
	mu.Unlock()
}

// rebuildSemantic refreshes the vector index after a successful merge.
// Failure is logged and never fails the run.
func (r *Runner) rebuildSemantic(ctx context.Context, report *Report, log *zap.SugaredLogger) {
	if r.semantic == nil || !r.semantic.Available() {
		return
	}
	events, err := r.store.ListEvents(ctx)
	if err != nil {
		log.Warnw("semantic rebuild skipped", "error", err)
		return
	}
	if err := r.semantic.Rebuild(ctx, semantic.ChunkEvents(events)); err != nil {
		log.Warnw("semantic rebuild failed", "error", err)
		return
	}
	report.SemanticRebuilt = true
	log.Infow("semantic index rebuilt")
}
