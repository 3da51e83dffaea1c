/*
Package harness contains shared test session state and the initialization
gate protecting its one-time setup.

A Session is created once per test run in the "not ready" state. Every test
case calls [Session.Ensure] before touching the chain. The first caller to
pass the gate runs the setup sequence, all others wait for it and then see
the published [Env]. Setup results are published as a whole after successful
completion, failures leave the session uninitialized so that the next
Ensure call retries.

Happens-before guarantees: everything done by the setup sequence happens
before any Ensure call returns the Env it produced, Env values returned by
[Session.Env] are fully initialized.
*/
package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nspcc-dev/contract-harness/pkg/chain"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Env is a published (immutable) session data: authenticated client and the
// contract instance under test.
type Env struct {
	Client   chain.Client
	Contract chain.ContractInfo
}

// SetupFunc performs the one-time setup and returns session data.
type SetupFunc func(ctx context.Context) (*Env, error)

// State is a session lifecycle state.
type State int32

// Session states, Ready is terminal.
const (
	Uninitialized State = iota
	Initializing
	Ready
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Status tells how a successful Ensure call got its Env.
type Status int

const (
	// AlreadyInitialized means someone else performed the setup.
	AlreadyInitialized Status = iota + 1
	// Initialized means this call performed the setup.
	Initialized
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case AlreadyInitialized:
		return "already initialized"
	case Initialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// Session is a process-wide test session.
type Session struct {
	log   *zap.Logger
	setup SetupFunc

	// gate is a weight-1 semaphore used as a mutex, it grants access in FIFO
	// order and can be left by context cancellation while waiting.
	gate *semaphore.Weighted
	// pending is only accessed with the gate held.
	pending bool

	state atomic.Int32
	env   atomic.Pointer[Env]
	runs  atomic.Int64

	lease  sync.RWMutex
	ledger atomic.Int64
}

// NewSession creates a new uninitialized session using the given setup
// procedure.
func NewSession(setup SetupFunc, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		log:     log,
		setup:   setup,
		gate:    semaphore.NewWeighted(1),
		pending: true,
	}
}

// Ensure passes the initialization gate. If the session is not yet
// initialized the setup is performed by this caller (with the gate held), any
// setup error is returned as [*SetupError] after the gate is released. ctx
// limits both waiting for the gate and the setup itself.
func (s *Session) Ensure(ctx context.Context) (*Env, Status, error) {
	if err := s.gate.Acquire(ctx, 1); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrGateAborted, err)
	}
	defer s.gate.Release(1)

	if !s.pending {
		return s.env.Load(), AlreadyInitialized, nil
	}

	env, err := s.initialize(ctx)
	if err != nil {
		return nil, 0, err
	}
	return env, Initialized, nil
}

// initialize runs the setup, it must be called with the gate held.
func (s *Session) initialize(ctx context.Context) (env *Env, err error) {
	var committed bool

	s.state.Store(int32(Initializing))
	defer func() {
		if !committed {
			s.state.Store(int32(Uninitialized))
		}
	}()

	s.runs.Add(1)
	s.log.Info("running session setup", zap.Int64("attempt", s.runs.Load()))
	env, err = s.setup(ctx)
	if err != nil {
		var se *SetupError
		if !errors.As(err, &se) {
			err = stageError(StageCommit, err)
		}
		s.log.Error("session setup failed", zap.Error(err))
		return nil, err
	}
	if env == nil || env.Client == nil || env.Contract.IsZero() {
		err = stageError(StageCommit, errors.New("setup returned incomplete session data"))
		s.log.Error("session setup failed", zap.Error(err))
		return nil, err
	}

	s.env.Store(env)
	s.pending = false
	s.state.Store(int32(Ready))
	committed = true
	s.log.Info("session is ready",
		zap.String("sender", env.Client.SenderAddress()),
		zap.String("contract", env.Contract.Address),
		zap.String("code hash", env.Contract.CodeHash))
	return env, nil
}

// Env returns session data if the session is ready and ErrNotReady otherwise.
func (s *Session) Env() (*Env, error) {
	env := s.env.Load()
	if env == nil {
		return nil, ErrNotReady
	}
	return env, nil
}

// Close releases the session client. The session stays Ready, it's only to
// be closed when no test case uses it anymore.
func (s *Session) Close() {
	if env := s.env.Load(); env != nil {
		chain.Close(env.Client)
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// SetupRuns returns the number of times setup procedure was invoked.
func (s *Session) SetupRuns() int64 {
	return s.runs.Load()
}

// Exclusive runs f with the exclusive lease of the session contract. Test
// cases asserting exact contract state use it to keep other lease holders
// out. The session must be ready.
func (s *Session) Exclusive(f func(env *Env) error) error {
	env, err := s.Env()
	if err != nil {
		return err
	}
	s.lease.Lock()
	defer s.lease.Unlock()
	return f(env)
}

// Shared runs f with the shared lease of the session contract, it excludes
// only Exclusive holders.
func (s *Session) Shared(f func(env *Env) error) error {
	env, err := s.Env()
	if err != nil {
		return err
	}
	s.lease.RLock()
	defer s.lease.RUnlock()
	return f(env)
}

// Commit records n successful contract mutations done via this session.
func (s *Session) Commit(n int) {
	s.ledger.Add(int64(n))
}

// Committed returns the number of contract mutations recorded by Commit.
func (s *Session) Committed() int64 {
	return s.ledger.Load()
}
