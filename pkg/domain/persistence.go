package domain

import "context"

// Transaction exposes the registry operations a persistence implementation
// must support within an atomic scope. Create operations assign the next
// identifier from the shared counter; updates preserve identifier and
// creation time; deletes return the removed record.
type Transaction interface {
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	UpdateUser(id uint64, mutator func(*User) error) (User, error)
	DeleteUser(id uint64) (User, error)
	CreatePlot(Plot) (Plot, error)
	UpdatePlot(id uint64, mutator func(*Plot) error) (Plot, error)
	DeletePlot(id uint64) (Plot, error)
	CreateActivity(Activity) (Activity, error)
	UpdateActivity(id uint64, mutator func(*Activity) error) (Activity, error)
	DeleteActivity(id uint64) (Activity, error)
	CreateResource(Resource) (Resource, error)
	UpdateResource(id uint64, mutator func(*Resource) error) (Resource, error)
	DeleteResource(id uint64) (Resource, error)
	CreateEvent(Event) (Event, error)
	UpdateEvent(id uint64, mutator func(*Event) error) (Event, error)
	DeleteEvent(id uint64) (Event, error)
}

// TransactionView provides read-only access to snapshot data for rules and
// authorization checks. Listings are ordered by ascending identifier, which
// equals insertion order because identifiers are issued monotonically.
type TransactionView interface {
	ListUsers() []User
	ListPlots() []Plot
	ListActivities() []Activity
	ListResources() []Resource
	ListEvents() []Event
	FindUser(id uint64) (User, bool)
	FindPlot(id uint64) (Plot, bool)
	FindActivity(id uint64) (Activity, bool)
	FindResource(id uint64) (Resource, bool)
	FindEvent(id uint64) (Event, bool)
	FindUserBy(predicate func(User) bool) (User, bool)
}

// PersistentStore is a minimal abstraction over durable backends. Every
// mutation committed through RunInTransaction is durable before the call
// returns.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetUser(id uint64) (User, bool)
	ListUsers() []User
	GetPlot(id uint64) (Plot, bool)
	ListPlots() []Plot
	GetActivity(id uint64) (Activity, bool)
	ListActivities() []Activity
	GetResource(id uint64) (Resource, bool)
	ListResources() []Resource
	GetEvent(id uint64) (Event, bool)
	ListEvents() []Event
	// LastID reports the most recently committed identifier.
	LastID() uint64
}
