package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/logger"
	"github.com/isdmx/execbox/sandbox"
)

// ErrShuttingDown is returned by Submit once Shutdown has begun
var ErrShuttingDown = errors.New("execution service is shutting down")

// SubmitResult is returned to the caller as soon as a job is accepted
type SubmitResult struct {
	ExecutionID string `json:"executionId"`
	Status      Status `json:"status"`
}

// Service coordinates executions: it accepts requests, runs them in the
// background and records their outcome exactly once.
type Service struct {
	logger    *zap.Logger
	runner    sandbox.Runner
	repo      *Repository
	validator *Validator
	profiles  *sandbox.Profiles
	slots     *semaphore.Weighted

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// ServiceOption represents a functional option for configuring Service
type ServiceOption func(*Service)

// WithMaxConcurrent caps the number of executions running at once.
// Zero or less leaves execution unbounded.
func WithMaxConcurrent(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(int64(n))
		} else {
			s.slots = nil
		}
	}
}

// WithLimits replaces the request limits
func WithLimits(limits Limits) ServiceOption {
	return func(s *Service) {
		s.validator = NewValidator(s.profiles, limits)
	}
}

// WithClock sets the time source used for record timestamps
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator sets the execution id generator
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a coordinator with default limits
func NewService(logger *zap.Logger, runner sandbox.Runner, profiles *sandbox.Profiles, repo *Repository, opts ...ServiceOption) *Service {
	s := &Service{
		logger:    logger.Named("execution"),
		runner:    runner,
		repo:      repo,
		profiles:  profiles,
		validator: NewValidator(profiles, DefaultLimits()),
		now:       time.Now,
		newID:     uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewServiceFromConfig creates a coordinator using the execution section
func NewServiceFromConfig(logger *zap.Logger, cfg *config.Config, runner sandbox.Runner, profiles *sandbox.Profiles, repo *Repository) *Service {
	return NewService(logger, runner, profiles, repo,
		WithLimits(LimitsFromConfig(cfg)),
		WithMaxConcurrent(cfg.Execution.MaxConcurrent),
	)
}

// Languages returns the profiles requests may name
func (s *Service) Languages() []sandbox.Profile {
	return s.profiles.All()
}

// Submit validates req, stores a pending record and starts the execution in
// the background. It does not wait for the program to run. Invalid requests
// return a *ValidationError and create no record. After Shutdown, Submit
// returns ErrShuttingDown.
func (s *Service) Submit(ctx context.Context, req Request) (SubmitResult, error) {
	job, err := s.validator.Validate(req)
	if err != nil {
		return SubmitResult{}, err
	}

	if err := s.reserve(); err != nil {
		return SubmitResult{}, err
	}

	rec := newRecord(s.newID(), job, s.now())
	if err := s.repo.Save(ctx, rec); err != nil {
		s.wg.Done()
		return SubmitResult{}, err
	}

	result := SubmitResult{ExecutionID: rec.ID, Status: rec.Status}

	log := logger.ForExecution(s.logger, rec.ID, rec.Language)
	log.Info("execution accepted", zap.Int("timeout_seconds", rec.TimeoutSeconds))

	// rec belongs to the task from here on
	go s.execute(context.WithoutCancel(ctx), log, rec)

	return result, nil
}

// reserve counts a new task unless Shutdown has begun
func (s *Service) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return ErrShuttingDown
	}
	s.wg.Add(1)
	return nil
}

// Status returns the latest snapshot of an execution
func (s *Service) Status(ctx context.Context, id string) (*Record, error) {
	return s.repo.Find(ctx, id)
}

// Await polls Status until the execution is terminal or ctx is done
func (s *Service) Await(ctx context.Context, id string, interval time.Duration) (*Record, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		rec, err := s.Status(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec.Status.IsTerminal() {
			return rec, nil
		}

		select {
		case <-ctx.Done():
			return rec, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown rejects further submissions and waits for in-flight executions
// to record their outcome.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight executions: %w", ctx.Err())
	}
}

func (s *Service) execute(ctx context.Context, log *zap.Logger, rec *Record) {
	defer s.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			log.Error("execution panicked", zap.Any("panic", p))
			s.finish(ctx, log, rec, sandbox.Output{}, fmt.Errorf("internal error: %v", p))
		}
	}()

	if s.slots != nil {
		if err := s.slots.Acquire(ctx, 1); err != nil {
			s.finish(ctx, log, rec, sandbox.Output{}, fmt.Errorf("failed to acquire execution slot: %w", err))
			return
		}
		defer s.slots.Release(1)
	}

	start := s.now()
	out, err := s.runner.Run(ctx, sandbox.RunRequest{
		ExecutionID: rec.ID,
		Language:    rec.Language,
		Code:        rec.Code,
		Input:       inputOf(rec),
		Timeout:     time.Duration(rec.TimeoutSeconds) * time.Second,
	})
	log.Debug("runner returned", zap.Duration("elapsed", s.now().Sub(start)))

	s.finish(ctx, log, rec, out, err)
}

// finish performs the single terminal write for rec.
func (s *Service) finish(ctx context.Context, log *zap.Logger, rec *Record, out sandbox.Output, runErr error) {
	var err error
	if runErr != nil {
		err = rec.Fail(runErr.Error(), s.now())
	} else {
		err = rec.Complete(out, s.now())
	}
	if errors.Is(err, ErrAlreadyTerminal) {
		log.Warn("execution already finished, outcome dropped", zap.NamedError("outcome", runErr))
		return
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		log.Error("failed to record execution outcome", zap.Error(err))
		return
	}

	fields := []zap.Field{zap.String("status", string(rec.Status))}
	if runErr != nil {
		fields = append(fields, zap.Error(runErr))
	}
	if errors.Is(runErr, sandbox.ErrTimeout) {
		log.Warn("execution timed out", fields...)
		return
	}
	log.Info("execution finished", fields...)
}

func inputOf(rec *Record) string {
	if rec.Input == nil {
		return ""
	}
	return *rec.Input
}
