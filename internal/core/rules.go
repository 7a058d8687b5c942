package core

import "hatchery/pkg/domain"

type (
	// Rule is evaluated against the post-transaction view before commit.
	Rule = domain.Rule
	// RulesEngine aggregates rule results.
	RulesEngine = domain.RulesEngine
)

// NewRulesEngine constructs an engine instance with no rules.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the registry invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(OwnershipConsistencyRule())
	engine.Register(CounterMonotonicRule())
	return engine
}
