package tasks

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xferctl/internal/shared"
)

const (
	DefaultPollInterval           = 2000 * time.Millisecond
	DefaultEstimateInterval       = 1000 * time.Millisecond
	DefaultMaxConsecutiveFailures = 2
	DefaultJobTimeout             = 30 * time.Minute
	DefaultStartRateLimit         = 5.0
	maxConcurrency                = 10
)

// Options tunes batch execution. Zero values are replaced by the defaults above.
type Options struct {
	PollInterval           time.Duration
	EstimateInterval       time.Duration
	MaxConsecutiveFailures int           // failed polls tolerated before the job fails
	JobTimeout             time.Duration // negative disables the ceiling
	Concurrency            int           // playlists in flight at once; 1 is sequential
	StartRateLimit         float64       // Start calls per second
	Logger                 *log.Logger
	Now                    func() time.Time
}

// DefaultOptions returns the reference timings with sequential execution.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// OptionsFromConfig converts the [transfer] config section. A zero job timeout disables it.
func OptionsFromConfig(c shared.TransferConfig, logger *log.Logger) Options {
	opts := Options{
		PollInterval:           time.Duration(c.PollIntervalMS) * time.Millisecond,
		EstimateInterval:       time.Duration(c.EstimateIntervalMS) * time.Millisecond,
		MaxConsecutiveFailures: c.MaxConsecutiveFailures,
		JobTimeout:             time.Duration(c.JobTimeoutMS) * time.Millisecond,
		Concurrency:            c.Concurrency,
		StartRateLimit:         c.StartRateLimit,
		Logger:                 logger,
	}
	if c.JobTimeoutMS == 0 {
		opts.JobTimeout = -1
	}
	return opts.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.EstimateInterval <= 0 {
		o.EstimateInterval = DefaultEstimateInterval
	}
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if o.JobTimeout == 0 {
		o.JobTimeout = DefaultJobTimeout
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Concurrency > maxConcurrency {
		o.Concurrency = maxConcurrency
	}
	if o.StartRateLimit <= 0 {
		o.StartRateLimit = DefaultStartRateLimit
	}
	if o.Logger == nil {
		o.Logger = shared.NewLogger(nil)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
