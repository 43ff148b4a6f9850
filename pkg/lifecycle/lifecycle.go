// Package lifecycle manages the state of units hosting pipeline
// programs.
//
// A unit owns one program, a function that wires a pipeline against a
// context and returns its handle. The unit walks a fixed state machine:
//
//	Installed -> Resolved -> Starting -> Active -> Stopping -> Resolved
//
// and finally Uninstalled. Starting runs the program; Stopping closes
// its handle, so everything the pipeline emitted is retracted and
// nothing further is emitted. A stopped unit can be started again; each
// start is a fresh run of the program.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	errs "github.com/vnykmshr/liveflow/pkg/common/errors"
	"github.com/vnykmshr/liveflow/pkg/flow"
)

// State is the lifecycle state of a unit.
type State int

const (
	// Installed means the unit exists but has not been validated.
	Installed State = iota

	// Resolved means the unit is validated and ready to start.
	Resolved

	// Starting means the unit's program is being wired and started.
	Starting

	// Active means the unit's pipeline is running.
	Active

	// Stopping means the unit's pipeline is being torn down.
	Stopping

	// Uninstalled means the unit is retired and cannot be used again.
	Uninstalled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Installed:
		return "installed"
	case Resolved:
		return "resolved"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	case Uninstalled:
		return "uninstalled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Program wires a pipeline against the given context and returns its
// handle. It is invoked on every start of the hosting unit.
type Program func(ctx *flow.Context) *flow.Result

// Unit hosts one program and walks it through the lifecycle. All
// methods are safe for concurrent use.
type Unit struct {
	name    string
	ctx     *flow.Context
	program Program
	logger  zerolog.Logger

	mu     sync.Mutex
	state  State
	result *flow.Result
}

// NewUnit creates a unit in the Installed state.
func NewUnit(name string, ctx *flow.Context, program Program) *Unit {
	logger := zerolog.Nop()
	if ctx != nil {
		logger = ctx.Logger.With().Str("unit", name).Logger()
	}
	return &Unit{
		name:    name,
		ctx:     ctx,
		program: program,
		logger:  logger,
		state:   Installed,
	}
}

// Name returns the unit's name.
func (u *Unit) Name() string {
	return u.name
}

// State returns the current lifecycle state.
func (u *Unit) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Resolve validates the unit and moves it from Installed to Resolved.
func (u *Unit) Resolve() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state != Installed {
		return u.transitionError("resolve")
	}
	if u.program == nil {
		return fmt.Errorf("unit %s: %w: program is required", u.name, errs.ErrInvalidConfiguration)
	}
	u.setState(Resolved)
	return nil
}

// Start runs the unit's program. The unit must be Resolved; an
// Installed unit is resolved first.
func (u *Unit) Start() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state == Installed {
		if u.program == nil {
			return fmt.Errorf("unit %s: %w: program is required", u.name, errs.ErrInvalidConfiguration)
		}
		u.setState(Resolved)
	}
	if u.state != Resolved {
		return u.transitionError("start")
	}

	u.setState(Starting)
	u.result = u.program(u.ctx)
	u.setState(Active)
	return nil
}

// Stop closes the unit's pipeline and returns it to Resolved. Teardown
// failures are reported but the unit still reaches Resolved.
func (u *Unit) Stop() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stopLocked()
}

func (u *Unit) stopLocked() error {
	if u.state != Active {
		return u.transitionError("stop")
	}

	u.setState(Stopping)
	err := u.result.Close()
	u.result = nil
	u.setState(Resolved)
	if err != nil {
		return fmt.Errorf("unit %s: stop: %w", u.name, err)
	}
	return nil
}

// Uninstall retires the unit. An Active unit is stopped first. After
// Uninstall the unit accepts no further transitions.
func (u *Unit) Uninstall() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var err error
	switch u.state {
	case Active:
		err = u.stopLocked()
	case Installed, Resolved:
	case Uninstalled:
		return nil
	default:
		return u.transitionError("uninstall")
	}

	u.setState(Uninstalled)
	return err
}

func (u *Unit) setState(s State) {
	u.logger.Debug().Stringer("from", u.state).Stringer("to", s).Msg("transition")
	u.state = s
}

func (u *Unit) transitionError(op string) error {
	return fmt.Errorf("unit %s: cannot %s while %s: %w", u.name, op, u.state, errs.ErrInvalidTransition)
}
