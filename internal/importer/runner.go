package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/regulynx/compliance-chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// FileProcessor persists one parsed, validated sheet and returns the number
// of records written. It owns the family's persistence policy, including the
// expected-vs-inserted count check where that applies.
type FileProcessor func(ctx context.Context, sheet *Sheet) (int, error)

// ActsProcessor bulk-inserts acts rows inside one transaction. A count
// mismatch between the transformed batch and the rows the store accepted is
// a file-level failure, not a partial success.
func ActsProcessor(repo domain.ActRepository) FileProcessor {
	return func(ctx context.Context, sheet *Sheet) (int, error) {
		acts := ToActs(sheet)
		if len(acts) == 0 {
			return 0, fmt.Errorf("no valid records found after transformation")
		}
		inserted, err := repo.BulkInsert(ctx, acts)
		if err != nil {
			return 0, err
		}
		if inserted != len(acts) {
			return 0, fmt.Errorf("row count mismatch: expected %d, inserted %d", len(acts), inserted)
		}
		return inserted, nil
	}
}

// ActsUpsertProcessor re-imports acts idempotently: conflicting natural keys
// have their non-key columns replaced.
func ActsUpsertProcessor(repo domain.ActRepository) FileProcessor {
	return func(ctx context.Context, sheet *Sheet) (int, error) {
		acts := ToActs(sheet)
		if len(acts) == 0 {
			return 0, fmt.Errorf("no valid records found after transformation")
		}
		return repo.BulkUpsert(ctx, acts)
	}
}

// MonthlyUpdatesProcessor bulk-inserts update rows; rows whose identity
// already exists are silently discarded, so an inserted count below the
// batch size is not a failure for this family.
func MonthlyUpdatesProcessor(repo domain.MonthlyUpdateRepository) FileProcessor {
	return func(ctx context.Context, sheet *Sheet) (int, error) {
		updates, _ := ToMonthlyUpdates(sheet)
		if len(updates) == 0 {
			return 0, fmt.Errorf("no valid records found after transformation")
		}
		return repo.BulkInsert(ctx, updates)
	}
}

// Runner orchestrates parse, validate, persist and archive for every
// discovered file of one family, aggregating results into the family's job
// status record.
//
// States: idle -> running -> completed | failed. A per-file error is caught,
// counted and never aborts the batch; the terminal status is failed only
// when the run breaks before per-file iteration begins.
type Runner struct {
	family   Family
	folder   string
	archiver *Archiver
	process  FileProcessor
	status   domain.JobStatusStore
}

// NewRunner creates a new import job runner
func NewRunner(fam Family, folder string, archiver *Archiver, process FileProcessor, status domain.JobStatusStore) *Runner {
	return &Runner{
		family:   fam,
		folder:   folder,
		archiver: archiver,
		process:  process,
		status:   status,
	}
}

// Family returns the family this runner serves.
func (r *Runner) Family() Family {
	return r.family
}

// Status returns the latest recorded job status for this family.
func (r *Runner) Status(ctx context.Context) (*domain.ImportJobStatus, error) {
	return r.status.Get(ctx, r.family.StatusKey)
}

// Run executes one import job with the runner's default processor.
func (r *Runner) Run(ctx context.Context) *domain.ImportJobStatus {
	return r.RunWith(ctx, r.process)
}

// RunWith executes one import job using the given processor.
func (r *Runner) RunWith(ctx context.Context, process FileProcessor) *domain.ImportJobStatus {
	jobID := uuid.New().String()
	start := time.Now()

	r.writeStatus(ctx, &domain.ImportJobStatus{
		Status:  domain.ImportRunning,
		Message: "Import job started",
		LastRun: start.Format(time.RFC3339),
		JobID:   jobID,
	})

	files, err := ScanFolder(r.folder)
	if err != nil {
		status := &domain.ImportJobStatus{
			Status:  domain.ImportFailed,
			Message: fmt.Sprintf("Import job failed: %v", err),
			LastRun: start.Format(time.RFC3339),
			JobID:   jobID,
		}
		log.Error().Err(err).Str("family", r.family.Name).Msg("Import job failed")
		r.writeStatus(ctx, status)
		return status
	}

	if len(files) == 0 {
		status := &domain.ImportJobStatus{
			Status:  domain.ImportIdle,
			Message: "No files to import",
			LastRun: start.Format(time.RFC3339),
			JobID:   jobID,
		}
		log.Info().Str("family", r.family.Name).Msg("No files to import")
		r.writeStatus(ctx, status)
		return status
	}

	totalProcessed := 0
	totalFailed := 0
	var lastFile string
	for _, file := range files {
		lastFile = filepath.Base(file)
		r.writeStatus(ctx, &domain.ImportJobStatus{
			Status:   domain.ImportRunning,
			Message:  fmt.Sprintf("Importing %s", lastFile),
			FileName: lastFile,
			LastRun:  start.Format(time.RFC3339),
			JobID:    jobID,
		})

		count, err := r.processFile(ctx, file, process)
		if err != nil {
			totalFailed++
			log.Error().Err(err).Str("file", lastFile).Str("family", r.family.Name).Msg("Failed to import file")
			r.archiver.Archive(file, false)
			continue
		}
		totalProcessed += count
		log.Info().Int("records", count).Str("file", lastFile).Str("family", r.family.Name).Msg("Imported file")
		r.archiver.Archive(file, true)
	}

	status := &domain.ImportJobStatus{
		Status:           domain.ImportCompleted,
		Message:          fmt.Sprintf("Imported %d records from %d file(s)", totalProcessed, len(files)),
		LastRun:          start.Format(time.RFC3339),
		RecordsProcessed: totalProcessed,
		RecordsFailed:    totalFailed,
		FilesProcessed:   len(files),
		FileName:         lastFile,
		JobID:            jobID,
	}
	r.writeStatus(ctx, status)
	log.Info().Str("family", r.family.Name).Str("message", status.Message).Msg("Import job completed")
	return status
}

func (r *Runner) processFile(ctx context.Context, file string, process FileProcessor) (int, error) {
	sheet, err := ParseFile(file, r.family)
	if err != nil {
		return 0, err
	}
	if ok, reason := Validate(sheet, r.family); !ok {
		return 0, fmt.Errorf("validation failed: %s", reason)
	}
	return process(ctx, sheet)
}

func (r *Runner) writeStatus(ctx context.Context, status *domain.ImportJobStatus) {
	if err := r.status.Set(ctx, r.family.StatusKey, status); err != nil {
		log.Error().Err(err).Str("family", r.family.Name).Msg("Failed to write job status")
	}
}
