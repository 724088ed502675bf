package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides whether a configured transition may be taken
type GuardFunc func(ctx context.Context) bool

// Builder assembles the legal-transition table for a request kind.
// The table is data: each state lists the triggers it permits and the
// state each trigger leads to, optionally protected by a guard.
type Builder interface {
	// Configure returns the transition configuration for a state
	Configure(state State) StateConfig

	// Build creates a state machine positioned at the given initial state
	Build(initialState State) StateMachine
}

// StateConfig configures the outgoing transitions of one state
type StateConfig interface {
	// Permit allows trigger to move to the target state
	Permit(trigger Trigger, to State) StateConfig

	// PermitIf allows trigger to move to the target state when the guard passes
	PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfig
}

type edge struct {
	to    State
	guard GuardFunc
}

type stateConfig struct {
	from  State
	edges map[Trigger][]edge
}

type builder struct {
	states map[State]*stateConfig
}

// NewBuilder creates an empty transition-table builder
func NewBuilder() Builder {
	return &builder{states: make(map[State]*stateConfig)}
}

func (b *builder) Configure(state State) StateConfig {
	if !state.IsValid() {
		panic(fmt.Sprintf("workflow: configuring unknown state %q", state))
	}
	cfg, ok := b.states[state]
	if !ok {
		cfg = &stateConfig{from: state, edges: make(map[Trigger][]edge)}
		b.states[state] = cfg
	}
	return cfg
}

func (b *builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("workflow: unknown initial state %q", initialState))
	}

	// Copy the table so machines built from the same builder stay independent
	states := make(map[State]*stateConfig, len(b.states))
	for s, cfg := range b.states {
		edges := make(map[Trigger][]edge, len(cfg.edges))
		for trig, es := range cfg.edges {
			edges[trig] = append([]edge(nil), es...)
		}
		states[s] = &stateConfig{from: s, edges: edges}
	}

	return &machine{current: initialState, states: states}
}

func (c *stateConfig) Permit(trigger Trigger, to State) StateConfig {
	return c.PermitIf(trigger, to, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, to State, guard GuardFunc) StateConfig {
	if !to.IsValid() {
		panic(fmt.Sprintf("workflow: transition to unknown state %q", to))
	}
	c.edges[trigger] = append(c.edges[trigger], edge{to: to, guard: guard})
	return c
}

type machine struct {
	current State
	states  map[State]*stateConfig
}

func (m *machine) State() State {
	return m.current
}

func (m *machine) CanFire(trigger Trigger) bool {
	cfg, ok := m.states[m.current]
	if !ok {
		return false
	}
	return len(cfg.edges[trigger]) > 0
}

func (m *machine) Fire(ctx context.Context, trigger Trigger) error {
	cfg, ok := m.states[m.current]
	if !ok {
		return fmt.Errorf("%w: trigger %s from state %s (state has no outgoing transitions)", ErrInvalidTransition, trigger, m.current)
	}

	edges := cfg.edges[trigger]
	if len(edges) == 0 {
		return fmt.Errorf("%w: trigger %s from state %s", ErrInvalidTransition, trigger, m.current)
	}

	// First edge whose guard passes wins; edges without a guard always pass
	for _, e := range edges {
		if e.guard == nil || e.guard(ctx) {
			m.current = e.to
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.current)
}

func (m *machine) PermittedTriggers() []Trigger {
	cfg, ok := m.states[m.current]
	if !ok {
		return []Trigger{}
	}
	triggers := make([]Trigger, 0, len(cfg.edges))
	for trig := range cfg.edges {
		triggers = append(triggers, trig)
	}
	return triggers
}
