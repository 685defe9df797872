package workflow

import (
	"log/slog"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// Options contains optional parameters for creating a Runner
	Options struct {
		Portal   Portal
		Logger   *slog.Logger
		Progress *api.Progress
	}

	// Applier mutates Options during Runner setup
	Applier func(*Options)
)

// DefaultOptions returns an Options instance with defaults applied
func DefaultOptions(apps ...Applier) *Options {
	opt := &Options{
		Portal: PortalMap{},
		Logger: slog.Default(),
	}
	ApplyOptions(opt, apps...)
	return opt
}

// ApplyOptions applies option appliers in order
func ApplyOptions(opt *Options, apps ...Applier) {
	for _, app := range apps {
		app(opt)
	}
}

// WithPortal sets the portal handed to step callbacks
func WithPortal(p Portal) Applier {
	return func(opt *Options) {
		if p != nil {
			opt.Portal = p
		}
	}
}

// WithLogger sets the logger used for step diagnostics
func WithLogger(l *slog.Logger) Applier {
	return func(opt *Options) {
		if l != nil {
			opt.Logger = l
		}
	}
}

// WithProgress resumes an in-flight run from previously captured progress
func WithProgress(p api.Progress) Applier {
	return func(opt *Options) {
		opt.Progress = &p
	}
}
