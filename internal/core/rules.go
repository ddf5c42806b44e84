package core

// NewDefaultRulesEngine builds a rules engine preloaded with the registry's
// standing invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewUniqueEmailRule())
	engine.Register(NewPlotOwnerRule())
	engine.Register(NewActivityPlotRule())
	return engine
}
