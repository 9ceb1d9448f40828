package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/acsclub/clubnews/internal/digest"
	"github.com/acsclub/clubnews/internal/domain"
	"github.com/acsclub/clubnews/internal/ports"
)

const (
	defaultBatchSize  = 10
	defaultBatchPause = time.Second
)

// DispatcherDeps wires the driven adapters into the dispatch use case.
type DispatcherDeps struct {
	Directory  ports.RecipientDirectory
	Sender     ports.DigestSender
	Composer   *digest.Composer
	Logger     *slog.Logger
	BatchSize  int
	BatchPause time.Duration
	// Pause is overridable so tests can observe inter-batch pacing without
	// sleeping.
	Pause func(ctx context.Context, d time.Duration)
}

// Dispatcher sends the weekly digest to every verified member in paced
// batches.
type Dispatcher struct {
	directory  ports.RecipientDirectory
	sender     ports.DigestSender
	composer   *digest.Composer
	logger     *slog.Logger
	batchSize  int
	batchPause time.Duration
	pause      func(ctx context.Context, d time.Duration)
}

// NewDispatcher constructs the dispatch component.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchPause := deps.BatchPause
	if batchPause <= 0 {
		batchPause = defaultBatchPause
	}
	pause := deps.Pause
	if pause == nil {
		pause = sleepCtx
	}
	return &Dispatcher{
		directory:  deps.Directory,
		sender:     deps.Sender,
		composer:   deps.Composer,
		logger:     deps.Logger,
		batchSize:  batchSize,
		batchPause: batchPause,
		pause:      pause,
	}
}

// SendDigestToAll resolves verified recipients and delivers the digest in
// fixed-size batches. Sends within a batch run concurrently; batches are
// strictly sequential with a pacing delay between them to respect provider
// rate limits. A single recipient's failure is recorded, never raised; only
// a directory lookup failure aborts the run.
func (d *Dispatcher) SendDigestToAll(ctx context.Context, global, regional []domain.NewsItem, week domain.WeekKey) (domain.DigestRunSummary, error) {
	recipients, err := d.directory.VerifiedRecipients(ctx)
	if err != nil {
		return domain.DigestRunSummary{}, &domain.RecipientLookupError{Err: err}
	}

	summary := domain.DigestRunSummary{
		TotalRecipients: len(recipients),
		Mode:            d.sender.Mode(),
		Results:         []domain.RecipientResult{},
		Timestamp:       time.Now(),
	}
	if len(recipients) == 0 {
		summary.Message = "no verified recipients to send to"
		d.warn("digest run skipped", "reason", summary.Message)
		return summary, nil
	}

	d.info("starting digest run", "recipients", len(recipients), "batch_size", d.batchSize)

	batches := lo.Chunk(recipients, d.batchSize)
	for i, batch := range batches {
		results := make([]domain.RecipientResult, len(batch))

		var wg sync.WaitGroup
		for j, recipient := range batch {
			wg.Add(1)
			go func(j int, recipient domain.Recipient) {
				defer wg.Done()
				results[j] = d.sendOne(ctx, recipient.Email, global, regional, week)
			}(j, recipient)
		}
		wg.Wait()

		summary.Results = append(summary.Results, results...)

		if i < len(batches)-1 {
			d.pause(ctx, d.batchPause)
		}
	}

	for _, result := range summary.Results {
		if result.Success {
			summary.SentCount++
		} else {
			summary.FailedCount++
		}
	}

	d.info("digest run completed",
		"sent", summary.SentCount,
		"failed", summary.FailedCount,
		"mode", summary.Mode,
	)
	return summary, nil
}

// SendTestDigest delivers the digest to a single address, used by admins to
// validate rendering and transport before a full run.
func (d *Dispatcher) SendTestDigest(ctx context.Context, email string, global, regional []domain.NewsItem, week domain.WeekKey) domain.RecipientResult {
	return d.sendOne(ctx, email, global, regional, week)
}

func (d *Dispatcher) sendOne(ctx context.Context, email string, global, regional []domain.NewsItem, week domain.WeekKey) domain.RecipientResult {
	body, err := d.composer.Compose(email, global, regional, week)
	if err != nil {
		d.warn("digest compose failed", "email", email, "error", err)
		return domain.RecipientResult{Email: email, Success: false, Mode: d.sender.Mode(), Error: err.Error()}
	}

	mode, err := d.sender.Send(ctx, email, d.composer.Subject(week), body)
	if err != nil {
		d.warn("digest send failed", "email", email, "error", err)
		return domain.RecipientResult{Email: email, Success: false, Mode: mode, Error: err.Error()}
	}
	return domain.RecipientResult{Email: email, Success: true, Mode: mode}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (d *Dispatcher) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Dispatcher) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
