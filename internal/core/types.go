// Package core wires the registry service: validation, rules, authorization,
// and transactional CRUD for the five record kinds.
package core

import "gardencore/pkg/domain"

// Aliases keep service signatures concise while exposing domain types from
// this package.
type (
	// User is an alias of domain.User.
	User = domain.User
	// Plot is an alias of domain.Plot.
	Plot = domain.Plot
	// Activity is an alias of domain.Activity.
	Activity = domain.Activity
	// Resource is an alias of domain.Resource.
	Resource = domain.Resource
	// Event is an alias of domain.Event.
	Event = domain.Event
	// Caller is an alias of domain.Caller.
	Caller = domain.Caller
	// UserPayload is an alias of domain.UserPayload.
	UserPayload = domain.UserPayload
	// PlotPayload is an alias of domain.PlotPayload.
	PlotPayload = domain.PlotPayload
	// ActivityPayload is an alias of domain.ActivityPayload.
	ActivityPayload = domain.ActivityPayload
	// ResourcePayload is an alias of domain.ResourcePayload.
	ResourcePayload = domain.ResourcePayload
	// EventPayload is an alias of domain.EventPayload.
	EventPayload = domain.EventPayload
	// Result is an alias of domain.Result.
	Result = domain.Result
	// RulesEngine is an alias of domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction is an alias of domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView is an alias of domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore is an alias of domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
