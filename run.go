package wikidigest

import (
	"context"
	"time"
)

// Step names one stage of page processing.
type Step string

// Step constants, in processing order.
const (
	StepChangeDetection       Step = "change_detection"
	StepContentExtraction     Step = "content_extraction"
	StepImageProcessing       Step = "image_processing"
	StepDescriptionGeneration Step = "description_generation"
	StepBlobUpload            Step = "blob_upload"
	StepIndexing              Step = "indexing"
	StepNotification          Step = "notification"
)

// PageResult is the outcome of processing one page.
type PageResult struct {
	PageID          string `json:"pageId"`
	Title           string `json:"title,omitempty"`
	Success         bool   `json:"success"`
	HasChanges      bool   `json:"hasChanges"`
	Version         int    `json:"version,omitempty"`
	PreviousVersion *int   `json:"previousVersion,omitempty"`
	ChangeSummary   string `json:"changeSummary,omitempty"`
	StepsCompleted  []Step `json:"stepsCompleted"`
	StepsFailed     []Step `json:"stepsFailed,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Complete records a finished step.
func (r *PageResult) Complete(step Step) {
	r.StepsCompleted = append(r.StepsCompleted, step)
}

// Fail records a failed step.
func (r *PageResult) Fail(step Step) {
	r.StepsFailed = append(r.StepsFailed, step)
}

// Completed reports whether step finished.
func (r *PageResult) Completed(step Step) bool {
	for _, s := range r.StepsCompleted {
		if s == step {
			return true
		}
	}
	return false
}

// RunStats aggregates cache and work counters over a run.
type RunStats struct {
	ImagesDownloaded      int     `json:"imagesDownloaded"`
	ImagesSkipped         int     `json:"imagesSkipped"`
	ImagesFailed          int     `json:"imagesFailed"`
	BytesDownloaded       int64   `json:"bytesDownloaded"`
	BytesSaved            int64   `json:"bytesSaved"`
	DescriptionsGenerated int     `json:"descriptionsGenerated"`
	DescriptionsCached    int     `json:"descriptionsCached"`
	DescriptionsFailed    int     `json:"descriptionsFailed"`
	EstimatedCostSaved    float64 `json:"estimatedCostSaved"`
	ArtifactsUploaded     int     `json:"artifactsUploaded"`
	ArtifactsSkipped      int     `json:"artifactsSkipped"`
	ChunksIndexed         int     `json:"chunksIndexed"`
	NotificationsSent     int     `json:"notificationsSent"`
	NotificationsFailed   int     `json:"notificationsFailed"`
}

// Add accumulates other into s.
func (s *RunStats) Add(other RunStats) {
	s.ImagesDownloaded += other.ImagesDownloaded
	s.ImagesSkipped += other.ImagesSkipped
	s.ImagesFailed += other.ImagesFailed
	s.BytesDownloaded += other.BytesDownloaded
	s.BytesSaved += other.BytesSaved
	s.DescriptionsGenerated += other.DescriptionsGenerated
	s.DescriptionsCached += other.DescriptionsCached
	s.DescriptionsFailed += other.DescriptionsFailed
	s.EstimatedCostSaved += other.EstimatedCostSaved
	s.ArtifactsUploaded += other.ArtifactsUploaded
	s.ArtifactsSkipped += other.ArtifactsSkipped
	s.ChunksIndexed += other.ChunksIndexed
	s.NotificationsSent += other.NotificationsSent
	s.NotificationsFailed += other.NotificationsFailed
}

// RunSummary is what a caller gets back from one sweep over the pages.
type RunSummary struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"startedAt"`
	FinishedAt       time.Time     `json:"finishedAt"`
	PagesProcessed   int           `json:"pagesProcessed"`
	PagesWithChanges int           `json:"pagesWithChanges"`
	PagesSuccessful  int           `json:"pagesSuccessful"`
	Stats            RunStats      `json:"stats"`
	Results          []*PageResult `json:"results"`
}

// RunService records run summaries.
type RunService interface {
	// CreateRun stores a finished run and assigns its ID.
	CreateRun(ctx context.Context, run *RunSummary) error

	// FindRunByID returns one run with its page results.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*RunSummary, error)

	// FindRuns returns runs newest first.
	FindRuns(ctx context.Context, filter RunFilter) ([]*RunSummary, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
