package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type (
	// Recognizer is the submission side of the pipeline, satisfied by Client.
	Recognizer interface {
		Submit(ctx context.Context, asset Asset, opts SubmitOptions) ([]FoodItem, error)
	}

	// Compressor is the preprocessing side, satisfied by Preprocessor.
	Compressor interface {
		ShouldCompress(asset Asset, thresholdBytes int64) bool
		Compress(asset Asset, maxDimension int, quality float64) (Asset, error)
	}

	// Policy carries the compression thresholds of both attempts. The retry
	// tier is deliberately more aggressive than the first.
	Policy struct {
		CompressThreshold int64
		MaxDimension      int
		Quality           float64
		RetryMaxDimension int
		RetryQuality      float64
		Timeout           time.Duration
	}

	// ProgressFunc receives a monotonically advancing value in [0,1]. It only
	// reaches 1.0 on confirmed terminal success, so a caller can never read a
	// failed run as a completed one from progress alone.
	ProgressFunc func(value float64)

	// Orchestrator drives one photo through preprocessing, submission and a
	// single degraded-payload retry. Each Analyze call owns its own attempt
	// counter and progress stream, so concurrent calls do not interfere.
	Orchestrator struct {
		preprocessor Compressor
		client       Recognizer
		policy       Policy
		log          *logrus.Entry
	}

	// Status of a terminal outcome.
	Status string

	// Outcome is the terminal result of one Analyze call.
	Outcome struct {
		Status   Status
		Items    []FoodItem
		Attempts int
	}
)

const (
	// StatusIdentified - the recognition service identified at least one item.
	StatusIdentified Status = "identified"
	// StatusNothingIdentified - the service processed the image correctly but
	// found nothing. Distinct from failure: retrying would waste a round trip.
	StatusNothingIdentified Status = "nothing_identified"
)

// progress animation: tick toward a near-complete cap while an attempt is in
// flight, matching an indeterminate-length network call.
const (
	progressTick = 50 * time.Millisecond
	progressStep = 0.01
	progressCap  = 0.95
)

// DefaultPolicy mirrors the production recognition endpoint limits: compress
// over 3 MB to 800px/0.7, retry once from the original at 600px/0.4.
func DefaultPolicy() Policy {
	return Policy{
		CompressThreshold: 3 * 1024 * 1024,
		MaxDimension:      800,
		Quality:           0.7,
		RetryMaxDimension: 600,
		RetryQuality:      0.4,
		Timeout:           DefaultTimeout,
	}
}

func NewOrchestrator(preprocessor Compressor, client Recognizer, policy Policy) *Orchestrator {
	return &Orchestrator{
		preprocessor: preprocessor,
		client:       client,
		policy:       policy,
		log:          logrus.WithField("component", "orchestrator"),
	}
}

// Analyze runs the full pipeline for one captured asset:
//
//	Idle -> Preprocessing? -> Uploading -> (Success | RetryPreprocessing ->
//	RetryUploading) -> (Success | TerminalFailure)
//
// The retry fires only for payload-class failures (PayloadTooLarge,
// ServerTimeout) of the first attempt and always recompresses from the
// original asset, never from the already-compressed first attempt. At most
// two upload attempts ever happen, each bounded by its own timeout.
func (o *Orchestrator) Analyze(ctx context.Context, asset Asset, progress ProgressFunc) (Outcome, error) {
	tracker := newProgressTracker(progress)
	stop := tracker.animate(ctx)
	defer stop()

	attempt := asset
	if o.preprocessor.ShouldCompress(asset, o.policy.CompressThreshold) {
		o.log.WithField("uri", asset.URI).Info("image is large, compressing")
		compressed, err := o.preprocessor.Compress(asset, o.policy.MaxDimension, o.policy.Quality)
		if err != nil {
			return Outcome{}, err
		}
		attempt = compressed
	}

	items, err := o.client.Submit(ctx, attempt, SubmitOptions{Timeout: o.policy.Timeout})
	if err == nil {
		return o.terminal(tracker, items, 1), nil
	}

	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) || !uploadErr.Retryable() {
		return Outcome{Attempts: 1}, err
	}

	o.log.WithField("kind", uploadErr.Kind).Info("first attempt failed, retrying with more aggressive compression")

	// Recompress from the original so quality loss never compounds.
	compressed, err := o.preprocessor.Compress(asset, o.policy.RetryMaxDimension, o.policy.RetryQuality)
	if err != nil {
		return Outcome{Attempts: 1}, err
	}

	items, err = o.client.Submit(ctx, compressed, SubmitOptions{Timeout: o.policy.Timeout})
	if err != nil {
		return Outcome{Attempts: 2}, fmt.Errorf("unable to analyze this image even after compression, please try a different photo with fewer food items: %w", err)
	}
	return o.terminal(tracker, items, 2), nil
}

// terminal builds the outcome and completes the progress signal, but only for
// an identified result: an empty-but-successful run must not read as done.
func (o *Orchestrator) terminal(tracker *progressTracker, items []FoodItem, attempts int) Outcome {
	if len(items) == 0 {
		o.log.Info("analysis complete, but no food identified")
		return Outcome{Status: StatusNothingIdentified, Attempts: attempts}
	}
	tracker.complete()
	return Outcome{Status: StatusIdentified, Items: items, Attempts: attempts}
}

// progressTracker owns the per-call progress value. The animated value climbs
// toward progressCap and never past it; only complete() drives it to 1.0.
type progressTracker struct {
	report ProgressFunc
	mu     sync.Mutex
	value  float64
	done   chan struct{}
}

func newProgressTracker(report ProgressFunc) *progressTracker {
	if report == nil {
		report = func(float64) {}
	}
	return &progressTracker{report: report, done: make(chan struct{})}
}

// advance moves the value to v unless it would move backwards.
func (t *progressTracker) advance(v float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v < t.value {
		return
	}
	t.value = v
	t.report(v)
}

func (t *progressTracker) animate(ctx context.Context) (stop func()) {
	ticker := time.NewTicker(progressTick)
	go func() {
		defer ticker.Stop()
		t.advance(0)
		for {
			select {
			case <-ticker.C:
				t.mu.Lock()
				next := t.value + progressStep
				t.mu.Unlock()
				if next <= progressCap {
					t.advance(next)
				}
			case <-t.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return t.finish
}

func (t *progressTracker) finish() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

func (t *progressTracker) complete() {
	t.finish()
	t.advance(1)
}
