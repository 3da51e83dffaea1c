/*
Package scenario contains the counter contract test scenarios run against a
shared harness session. Every scenario passes the initialization gate first,
so whichever scenario comes first performs the session setup.
*/
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nspcc-dev/contract-harness/pkg/counter"
	"github.com/nspcc-dev/contract-harness/pkg/harness"
	"go.uber.org/zap"
)

// Scenario is a named test case over the session contract.
type Scenario struct {
	Name string
	Run  func(ctx context.Context, s *harness.Session, log *zap.Logger) error
}

// Result is a scenario outcome.
type Result struct {
	Name     string
	Status   harness.Status
	Duration time.Duration
	Err      error
}

// Passed returns true if the scenario succeeded.
func (r Result) Passed() bool {
	return r.Err == nil
}

// CountOnInitialization checks that the counter holds the initial value plus
// all the increments committed to the session before.
func CountOnInitialization(initial int64) Scenario {
	return Scenario{
		Name: "count on initialization",
		Run: func(ctx context.Context, s *harness.Session, log *zap.Logger) error {
			return s.Exclusive(func(env *harness.Env) error {
				c := counter.New(env.Client, env.Contract, log)
				return counter.CheckCount(ctx, c, initial+s.Committed())
			})
		},
	}
}

// IncrementStress sends n sequential increments and checks the counter to be
// advanced by exactly n. Completed increments are committed to the session.
func IncrementStress(n int) Scenario {
	return Scenario{
		Name: fmt.Sprintf("increment stress x%d", n),
		Run: func(ctx context.Context, s *harness.Session, log *zap.Logger) error {
			return s.Exclusive(func(env *harness.Env) error {
				c := counter.New(env.Client, env.Contract, log)
				done, err := counter.CheckStress(ctx, c, n)
				s.Commit(done)
				return err
			})
		},
	}
}

// Default returns the default scenario suite.
func Default(initial int64, stress int) []Scenario {
	return []Scenario{
		CountOnInitialization(initial),
		IncrementStress(stress),
	}
}

// Execute passes the session gate and runs the scenario.
func Execute(ctx context.Context, s *harness.Session, sc Scenario, log *zap.Logger) Result {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("scenario", sc.Name))
	start := time.Now()
	res := Result{Name: sc.Name}

	_, res.Status, res.Err = s.Ensure(ctx)
	if res.Err == nil {
		res.Err = sc.Run(ctx, s, log)
	}
	res.Duration = time.Since(start)

	var se *harness.SetupError
	switch {
	case res.Err == nil:
		log.Info("scenario passed", zap.Stringer("setup", res.Status), zap.Duration("took", res.Duration))
	case errors.As(res.Err, &se):
		log.Error("scenario setup failed", zap.String("stage", string(se.Stage)), zap.Error(se.Err))
	default:
		log.Error("scenario failed", zap.Duration("took", res.Duration), zap.Error(res.Err))
	}
	return res
}
