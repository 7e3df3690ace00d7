package health

import (
	"context"
	"fmt"
	"time"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

// DegradedError marks a check failure that does not make the process
// unhealthy.
type DegradedError struct {
	Reason string
}

func (e *DegradedError) Error() string {
	return e.Reason
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult)
	allHealthy := true
	anyDegraded := false

	for _, checker := range r.checkers {
		err := checker.Check(ctx)
		result := CheckResult{
			Timestamp: time.Now(),
		}

		switch e := err.(type) {
		case nil:
			result.Status = StatusHealthy
		case *DegradedError:
			result.Status = StatusDegraded
			result.Message = e.Error()
			anyDegraded = true
		default:
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			allHealthy = false
		}

		results[checker.Name()] = result
	}

	overallStatus := StatusHealthy
	if !allHealthy {
		overallStatus = StatusUnhealthy
	} else if anyDegraded {
		overallStatus = StatusDegraded
	}

	return Health{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// Runner is anything with a running state, such as the correlation engine.
type Runner interface {
	Running() bool
}

type EngineChecker struct {
	engine Runner
}

func NewEngineChecker(engine Runner) *EngineChecker {
	return &EngineChecker{engine: engine}
}

func (c *EngineChecker) Name() string {
	return "engine"
}

func (c *EngineChecker) Check(ctx context.Context) error {
	if !c.engine.Running() {
		return fmt.Errorf("engine is not running")
	}
	return nil
}

// Backlog is anything that reports a pending item count.
type Backlog interface {
	Len() int
}

// BacklogChecker reports degraded once the backlog exceeds threshold.
type BacklogChecker struct {
	backlog   Backlog
	threshold int
}

func NewBacklogChecker(backlog Backlog, threshold int) *BacklogChecker {
	return &BacklogChecker{backlog: backlog, threshold: threshold}
}

func (c *BacklogChecker) Name() string {
	return "event_queue"
}

func (c *BacklogChecker) Check(ctx context.Context) error {
	if n := c.backlog.Len(); n > c.threshold {
		return &DegradedError{Reason: fmt.Sprintf("event queue backlog %d exceeds %d", n, c.threshold)}
	}
	return nil
}
