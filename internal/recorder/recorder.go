package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/aerolab/tunnelcore/internal/state"
	"github.com/aerolab/tunnelcore/internal/storage"
)

// Status describes what the sampling loop is currently doing.
type Status string

const (
	// StatusStopped means the loop is not running.
	StatusStopped Status = "stopped"

	// StatusWaiting means the device is off; the loop polls at the idle interval.
	StatusWaiting Status = "waiting"

	// StatusWaitingData means the device is on but a recording condition is
	// unmet: no clients, no model or user selected, or stale telemetry.
	StatusWaitingData Status = "waiting_data"

	// StatusRecording means samples are being persisted.
	StatusRecording Status = "recording"
)

// Stater supplies the current shared state.
type Stater interface {
	Snapshot() state.Snapshot
}

// ClientCounter reports how many control clients are connected.
type ClientCounter interface {
	ClientCount() int
}

// SampleWriter persists completed test samples.
type SampleWriter interface {
	Append(ctx context.Context, sample storage.TestSample) error
}

// Mirror receives a best-effort copy of every persisted sample.
type Mirror interface {
	WriteTestSample(modelID, userID int64, dragForce, downForce, windSpeed float64)
}

// Logger is the minimal logging interface the recorder needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the loop intervals.
type Config struct {
	// SampleInterval is the pause between samples while recording or while
	// waiting on a recording condition.
	SampleInterval time.Duration

	// IdleInterval is the pause while the device is off.
	IdleInterval time.Duration

	// RecencyWindow bounds how old the last telemetry may be for a sample
	// to count as live.
	RecencyWindow time.Duration
}

// Deps bundles the recorder's collaborators. Mirror and Logger are optional.
type Deps struct {
	Stater  Stater
	Clients ClientCounter
	Samples SampleWriter
	Mirror  Mirror
	Logger  Logger
}

// Recorder owns the background sampling loop.
type Recorder struct {
	cfg     Config
	stater  Stater
	clients ClientCounter
	samples SampleWriter
	mirror  Mirror
	logger  Logger

	mu      sync.Mutex
	status  Status
	running bool
}

// New creates a Recorder. The loop does not run until Start is called.
func New(cfg Config, deps Deps) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		cfg:     cfg,
		stater:  deps.Stater,
		clients: deps.Clients,
		samples: deps.Samples,
		mirror:  deps.Mirror,
		logger:  logger,
		status:  StatusStopped,
	}
}

// Start launches the sampling loop. At most one loop runs at a time; a
// second Start while running returns ErrAlreadyRunning.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	r.running = true
	r.mu.Unlock()

	go r.loop(ctx)
	return nil
}

// Status returns what the loop is currently doing.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Recorder) setStatus(s Status) {
	r.mu.Lock()
	changed := r.status != s
	r.status = s
	r.mu.Unlock()

	// Status transitions are logged once, not on every poll.
	if changed {
		r.logger.Info("recorder status changed", "status", string(s))
	}
}

func (r *Recorder) loop(ctx context.Context) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.status = StatusStopped
		r.mu.Unlock()
		r.logger.Info("recorder stopped")
	}()

	for {
		interval := r.step(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// step evaluates the recording gate once and persists a sample when every
// condition holds. It returns how long the loop should pause before the
// next evaluation.
func (r *Recorder) step(ctx context.Context) time.Duration {
	snap := r.stater.Snapshot()

	if !snap.DeviceOn {
		r.setStatus(StatusWaiting)
		return r.cfg.IdleInterval
	}

	if r.clients.ClientCount() == 0 || snap.ModelID == nil || snap.UserID == nil || !r.telemetryFresh(snap) {
		r.setStatus(StatusWaitingData)
		return r.cfg.SampleInterval
	}

	// An idle rig reports zeros; those are not measurements.
	if snap.DragForce == 0 && snap.DownForce == 0 {
		r.setStatus(StatusWaitingData)
		return r.cfg.SampleInterval
	}

	// The device may have been switched off between the gate check and the
	// write; a fresh snapshot closes that window.
	fresh := r.stater.Snapshot()
	if !fresh.DeviceOn {
		r.setStatus(StatusWaiting)
		return r.cfg.IdleInterval
	}
	if fresh.ModelID == nil || fresh.UserID == nil {
		r.setStatus(StatusWaitingData)
		return r.cfg.SampleInterval
	}

	r.setStatus(StatusRecording)

	sample := storage.TestSample{
		DragForce: fresh.DragForce,
		DownForce: fresh.DownForce,
		WindSpeed: fresh.WindSpeed,
		ModelID:   *fresh.ModelID,
		UserID:    *fresh.UserID,
	}
	if err := r.samples.Append(ctx, sample); err != nil {
		// A failed write must not stop the loop; the next sample retries.
		r.logger.Error("persisting test sample", "error", err)
		return r.cfg.SampleInterval
	}

	if r.mirror != nil {
		r.mirror.WriteTestSample(sample.ModelID, sample.UserID, sample.DragForce, sample.DownForce, sample.WindSpeed)
	}
	return r.cfg.SampleInterval
}

func (r *Recorder) telemetryFresh(snap state.Snapshot) bool {
	if snap.LastMicrocontrollerData == nil {
		return false
	}
	return time.Since(*snap.LastMicrocontrollerData) <= r.cfg.RecencyWindow
}
