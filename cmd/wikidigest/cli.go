package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/fwojciec/wikidigest"
)

// Runner processes a set of pages, as pipeline.Pipeline does.
type Runner interface {
	Run(ctx context.Context, pageIDs []string, force bool) (*wikidigest.RunSummary, error)
}

// Checker runs change detection for one page, as detect.Detector does.
type Checker interface {
	Detect(ctx context.Context, pageID string, force bool) (*wikidigest.ChangeDetection, *wikidigest.Page, error)
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	Config *Config

	Snapshots   wikidigest.SnapshotService
	Subscribers wikidigest.SubscriberService
	Runs        wikidigest.RunService

	// Set only for the commands that need them.
	Runner  Runner
	Checker Checker
	Metrics http.Handler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool   `short:"v" help:"Enable debug logging"`
	Pages   string `name:"pages" env:"WIKIDIGEST_PAGES" type:"path" help:"YAML file listing monitored pages"`

	Run         RunCmd         `cmd:"" help:"Process pages and send digests for changes"`
	Detect      DetectCmd      `cmd:"" help:"Check pages for changes without processing them"`
	Serve       ServeCmd       `cmd:"" help:"Run on a schedule and serve metrics and run history"`
	Subscribe   SubscribeCmd   `cmd:"" help:"Subscribe an email address to a page"`
	Unsubscribe UnsubscribeCmd `cmd:"" help:"Remove page subscriptions"`
	Subscribers SubscribersCmd `cmd:"" help:"List subscribers"`
	History     HistoryCmd     `cmd:"" help:"Show past runs or the versions of a page"`
}

// RunCmd is the "run" subcommand.
type RunCmd struct {
	PageIDs []string `arg:"" optional:"" name:"page-id" help:"Pages to process (default: configured pages)"`
	Force   bool     `short:"f" help:"Reprocess pages even when unchanged"`
}

// DetectCmd is the "detect" subcommand.
type DetectCmd struct {
	PageIDs []string `arg:"" optional:"" name:"page-id" help:"Pages to check (default: configured pages)"`
	Save    bool     `help:"Record new snapshots"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr     string `default:":8080" help:"HTTP listen address"`
	Schedule string `help:"Cron schedule for runs (default: pages file schedule, else hourly)"`
}

// SubscribeCmd is the "subscribe" subcommand.
type SubscribeCmd struct {
	Email    string `arg:"" help:"Subscriber email"`
	PageID   string `arg:"" name:"page-id" help:"Page to subscribe to"`
	Name     string `help:"Subscriber display name"`
	PageName string `name:"page-name" help:"Page name shown in listings"`
}

// UnsubscribeCmd is the "unsubscribe" subcommand.
type UnsubscribeCmd struct {
	Email  string `arg:"" help:"Subscriber email"`
	PageID string `arg:"" optional:"" name:"page-id" help:"Page to unsubscribe from"`
	All    bool   `help:"Remove every subscription"`
}

// SubscribersCmd is the "subscribers" subcommand.
type SubscribersCmd struct {
	Page string `help:"Only show subscribers of this page"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Page  string `help:"Show the stored versions of this page instead of runs"`
	Limit int    `short:"n" default:"20" help:"Maximum number of runs to show"`
}
