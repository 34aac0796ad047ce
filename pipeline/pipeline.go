// Package pipeline runs the per-page processing steps and aggregates them
// into run summaries.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/cache"
	"github.com/fwojciec/wikidigest/chunk"
)

// Observer receives page and run outcomes, for metrics.
type Observer interface {
	ObservePage(result *wikidigest.PageResult, duration time.Duration)
	ObserveRun(summary *wikidigest.RunSummary)
}

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	PageID    string
	Result    *wikidigest.PageResult
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressPageDone
	ProgressFinished
)

// ProgressFunc is a callback for reporting run progress.
type ProgressFunc func(event ProgressEvent)

// Pipeline processes wiki pages end to end.
type Pipeline struct {
	Pages    wikidigest.PageSource
	Detector wikidigest.ChangeDetector
	Parser   wikidigest.Parser
	Images   *cache.ImageProcessor
	Store    *cache.Store
	Chunker  wikidigest.Chunker
	Indexer  *chunk.Indexer
	Index    wikidigest.SearchIndex

	// Optional collaborators.
	Digests  wikidigest.DigestService
	Runs     wikidigest.RunService
	Observer Observer
	Progress ProgressFunc

	// BaseURL is the wiki site root used for page links.
	BaseURL string

	Logger *slog.Logger
	Now    func() time.Time
}

// ProcessPage runs every step for one page. Failures are recorded in the
// result; a page whose content did not change only completes change
// detection. The returned stats count the cache and delivery work done.
func (p *Pipeline) ProcessPage(ctx context.Context, pageID string, force bool) (*wikidigest.PageResult, wikidigest.RunStats) {
	var stats wikidigest.RunStats
	result := &wikidigest.PageResult{PageID: pageID, StepsCompleted: []wikidigest.Step{}}
	log := p.logger().With("page", pageID)

	fail := func(step wikidigest.Step, err error) {
		result.Fail(step)
		if result.Error == "" {
			result.Error = fmt.Sprintf("%s: %v", step, err)
		}
		log.Error("step failed", "step", step, "err", err)
	}

	page, err := p.Pages.FetchPage(ctx, pageID)
	if err != nil {
		fail(wikidigest.StepChangeDetection, err)
		return result, stats
	}
	result.Title = page.Title

	det, err := p.Detector.DetectPage(ctx, page, force)
	if err != nil {
		fail(wikidigest.StepChangeDetection, err)
		return result, stats
	}
	result.Complete(wikidigest.StepChangeDetection)
	result.HasChanges = det.HasChanges
	result.Version = det.VersionNumber
	result.PreviousVersion = det.PreviousVersion
	result.ChangeSummary = det.ChangeSummary

	if !det.NeedsReprocessing {
		log.Info("unchanged", "version", det.VersionNumber)
		result.Success = true
		return result, stats
	}

	parsed, err := p.Parser.Parse(page.Body)
	if err != nil {
		fail(wikidigest.StepContentExtraction, err)
		return result, stats
	}
	for _, w := range parsed.Warnings {
		log.Warn("parse warning", "warning", w)
	}
	result.Complete(wikidigest.StepContentExtraction)
	blocks := parsed.Blocks

	base := wikidigest.PageBasePath(page.SpaceKey, page.Title, page.ID)

	// Images are resolved before the document is stored, since the stored
	// document embeds their URLs and descriptions.
	imageStats := p.Images.Process(ctx, page, base, blocks)
	stats.Add(imageStats)
	if imageStats.ImagesFailed > 0 {
		fail(wikidigest.StepImageProcessing, fmt.Errorf("%d images failed", imageStats.ImagesFailed))
	} else {
		result.Complete(wikidigest.StepImageProcessing)
	}
	if imageStats.DescriptionsFailed > 0 {
		fail(wikidigest.StepDescriptionGeneration, fmt.Errorf("%d descriptions failed", imageStats.DescriptionsFailed))
	} else {
		result.Complete(wikidigest.StepDescriptionGeneration)
	}

	doc := wikidigest.NewPageDocument(page, p.BaseURL, det.VersionNumber, blocks, p.now())
	doc.Metadata.ChangeSummary = det.ChangeSummary
	if err := p.upload(ctx, base, doc, &stats); err != nil {
		fail(wikidigest.StepBlobUpload, err)
	} else {
		result.Complete(wikidigest.StepBlobUpload)
	}

	n, err := p.index(ctx, doc)
	stats.ChunksIndexed += n
	if err != nil {
		fail(wikidigest.StepIndexing, err)
	} else {
		result.Complete(wikidigest.StepIndexing)
	}

	if det.HasChanges && p.Digests != nil && result.Completed(wikidigest.StepIndexing) {
		dr, err := p.Digests.SendDigest(ctx, doc.Metadata)
		switch {
		case err != nil:
			fail(wikidigest.StepNotification, err)
		case dr.Status == wikidigest.DigestFailed:
			stats.NotificationsFailed += dr.FailedCount
			fail(wikidigest.StepNotification, fmt.Errorf("all %d deliveries failed", dr.FailedCount))
		default:
			stats.NotificationsSent += dr.SentCount
			stats.NotificationsFailed += dr.FailedCount
			result.Complete(wikidigest.StepNotification)
		}
	}

	result.Success = len(result.StepsFailed) == 0
	log.Info("processed", "version", det.VersionNumber, "success", result.Success, "summary", det.ChangeSummary)
	return result, stats
}

// upload stores the page document and records its version in the page
// manifest.
func (p *Pipeline) upload(ctx context.Context, base string, doc *wikidigest.PageDocument, stats *wikidigest.RunStats) error {
	res, err := p.Store.UploadJSON(ctx, cache.VersionKey(base, doc.Metadata.Version), doc)
	if err != nil {
		return err
	}
	count(stats, res)

	var described int
	for _, img := range wikidigest.Images(doc.Blocks) {
		if img.Description != "" {
			described++
		}
	}
	res, err = p.Store.RecordVersion(ctx, base, doc.Metadata.PageID, doc.Metadata.Title, cache.VersionEntry{
		Version:           doc.Metadata.Version,
		ProcessedAt:       doc.Metadata.ExtractedAt,
		ImagesCount:       doc.Metadata.ImageCount,
		DescriptionsCount: described,
		ChangeSummary:     doc.Metadata.ChangeSummary,
	})
	if err != nil {
		return err
	}
	count(stats, res)
	return nil
}

func count(stats *wikidigest.RunStats, res *wikidigest.UploadResult) {
	if res.Uploaded {
		stats.ArtifactsUploaded++
	} else {
		stats.ArtifactsSkipped++
	}
}

// index replaces the page's documents in the search index.
func (p *Pipeline) index(ctx context.Context, doc *wikidigest.PageDocument) (int, error) {
	chunks := p.Chunker.Chunk(doc.Metadata, doc.Blocks)
	docs := p.Indexer.Prepare(ctx, chunk.BuildIndexDocuments(doc.Metadata, chunks))
	if len(docs) == 0 {
		return 0, wikidigest.Errorf(wikidigest.EINTERNAL, "no indexable chunks")
	}

	if err := p.Index.DeletePage(ctx, doc.Metadata.PageID); err != nil {
		return 0, fmt.Errorf("delete previous documents: %w", err)
	}
	if err := p.Index.Upsert(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Run processes pages one after another. Cancellation is checked before
// each page; the summary of the pages done so far is returned with the
// context error. A panic while processing a page fails only that page.
func (p *Pipeline) Run(ctx context.Context, pageIDs []string, force bool) (*wikidigest.RunSummary, error) {
	summary := &wikidigest.RunSummary{
		StartedAt: p.now(),
		Results:   []*wikidigest.PageResult{},
	}
	p.progress(ProgressEvent{Type: ProgressStarted, Total: len(pageIDs)})

	var runErr error
	for i, id := range pageIDs {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		begin := time.Now()
		result, stats := p.processSafely(ctx, id, force)
		if p.Observer != nil {
			p.Observer.ObservePage(result, time.Since(begin))
		}

		summary.Results = append(summary.Results, result)
		summary.Stats.Add(stats)
		summary.PagesProcessed++
		if result.HasChanges {
			summary.PagesWithChanges++
		}
		if result.Success {
			summary.PagesSuccessful++
		}
		p.progress(ProgressEvent{Type: ProgressPageDone, Completed: i + 1, Total: len(pageIDs), PageID: id, Result: result})
	}
	summary.FinishedAt = p.now()

	if p.Runs != nil {
		if err := p.Runs.CreateRun(context.WithoutCancel(ctx), summary); err != nil {
			p.logger().Error("record run", "err", err)
		}
	}
	if p.Observer != nil {
		p.Observer.ObserveRun(summary)
	}
	p.progress(ProgressEvent{Type: ProgressFinished, Completed: summary.PagesProcessed, Total: len(pageIDs)})

	return summary, runErr
}

func (p *Pipeline) processSafely(ctx context.Context, pageID string, force bool) (result *wikidigest.PageResult, stats wikidigest.RunStats) {
	defer func() {
		if r := recover(); r != nil {
			p.logger().Error("panic processing page", "page", pageID, "panic", r, "stack", string(debug.Stack()))
			if result == nil {
				result = &wikidigest.PageResult{PageID: pageID, StepsCompleted: []wikidigest.Step{}}
			}
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()
	return p.ProcessPage(ctx, pageID, force)
}

func (p *Pipeline) progress(event ProgressEvent) {
	if p.Progress != nil {
		p.Progress(event)
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.DiscardHandler)
}
