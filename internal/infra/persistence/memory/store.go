// Package memory provides the in-memory implementation of the registry
// persistence store, used directly for tests and ephemeral environments and
// embedded by the durable sqlite and postgres stores.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gardencore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User for in-memory persistence operations.
	User = domain.User
	// Plot aliases domain.Plot.
	Plot = domain.Plot
	// Activity aliases domain.Activity.
	Activity = domain.Activity
	// Resource aliases domain.Resource.
	Resource = domain.Resource
	// Event aliases domain.Event.
	Event = domain.Event
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// table is a keyed record collection. Records hold no reference types, so
// value assignment is a deep copy. Iteration is by ascending identifier,
// which equals insertion order because identifiers are issued monotonically.
type table[R any] struct {
	records map[uint64]R
}

func newTable[R any]() table[R] {
	return table[R]{records: make(map[uint64]R)}
}

func (t table[R]) clone() table[R] {
	cloned := newTable[R]()
	for id, r := range t.records {
		cloned.records[id] = r
	}
	return cloned
}

func (t table[R]) ids() []uint64 {
	out := make([]uint64, 0, len(t.records))
	for id := range t.records {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t table[R]) get(id uint64) (R, bool) {
	r, ok := t.records[id]
	return r, ok
}

// insert is an upsert: it overwrites any prior value at id and never fails.
func (t table[R]) insert(id uint64, r R) {
	t.records[id] = r
}

func (t table[R]) remove(id uint64) (R, bool) {
	r, ok := t.records[id]
	if ok {
		delete(t.records, id)
	}
	return r, ok
}

func (t table[R]) list() []R {
	out := make([]R, 0, len(t.records))
	for _, id := range t.ids() {
		out = append(out, t.records[id])
	}
	return out
}

// findBy returns the first record matching the predicate in id order.
func (t table[R]) findBy(predicate func(R) bool) (R, bool) {
	for _, id := range t.ids() {
		if r := t.records[id]; predicate(r) {
			return r, true
		}
	}
	var zero R
	return zero, false
}

type registryState struct {
	users      table[User]
	plots      table[Plot]
	activities table[Activity]
	resources  table[Resource]
	events     table[Event]
	lastID     uint64
}

func newRegistryState() registryState {
	return registryState{
		users:      newTable[User](),
		plots:      newTable[Plot](),
		activities: newTable[Activity](),
		resources:  newTable[Resource](),
		events:     newTable[Event](),
	}
}

func (s registryState) clone() registryState {
	return registryState{
		users:      s.users.clone(),
		plots:      s.plots.clone(),
		activities: s.activities.clone(),
		resources:  s.resources.clone(),
		events:     s.events.clone(),
		lastID:     s.lastID,
	}
}

// Snapshot captures a point-in-time clone of the store state, including the
// shared identifier counter.
type Snapshot struct {
	Users      map[uint64]User     `json:"users"`
	Plots      map[uint64]Plot     `json:"plots"`
	Activities map[uint64]Activity `json:"activities"`
	Resources  map[uint64]Resource `json:"resources"`
	Events     map[uint64]Event    `json:"events"`
	LastID     uint64              `json:"last_id"`
}

func snapshotFromState(state registryState) Snapshot {
	s := Snapshot{
		Users:      make(map[uint64]User, len(state.users.records)),
		Plots:      make(map[uint64]Plot, len(state.plots.records)),
		Activities: make(map[uint64]Activity, len(state.activities.records)),
		Resources:  make(map[uint64]Resource, len(state.resources.records)),
		Events:     make(map[uint64]Event, len(state.events.records)),
		LastID:     state.lastID,
	}
	for id, r := range state.users.records {
		s.Users[id] = r
	}
	for id, r := range state.plots.records {
		s.Plots[id] = r
	}
	for id, r := range state.activities.records {
		s.Activities[id] = r
	}
	for id, r := range state.resources.records {
		s.Resources[id] = r
	}
	for id, r := range state.events.records {
		s.Events[id] = r
	}
	return s
}

// migrateSnapshot normalizes snapshots loaded from durable storage: nil maps
// become empty, and the counter is raised to the highest identifier present
// so a stale counter can never cause reissued identifiers.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Users == nil {
		snapshot.Users = map[uint64]User{}
	}
	if snapshot.Plots == nil {
		snapshot.Plots = map[uint64]Plot{}
	}
	if snapshot.Activities == nil {
		snapshot.Activities = map[uint64]Activity{}
	}
	if snapshot.Resources == nil {
		snapshot.Resources = map[uint64]Resource{}
	}
	if snapshot.Events == nil {
		snapshot.Events = map[uint64]Event{}
	}
	max := snapshot.LastID
	for id := range snapshot.Users {
		if id > max {
			max = id
		}
	}
	for id := range snapshot.Plots {
		if id > max {
			max = id
		}
	}
	for id := range snapshot.Activities {
		if id > max {
			max = id
		}
	}
	for id := range snapshot.Resources {
		if id > max {
			max = id
		}
	}
	for id := range snapshot.Events {
		if id > max {
			max = id
		}
	}
	snapshot.LastID = max
	return snapshot
}

func stateFromSnapshot(s Snapshot) registryState {
	state := newRegistryState()
	for id, r := range s.Users {
		state.users.records[id] = r
	}
	for id, r := range s.Plots {
		state.plots.records[id] = r
	}
	for id, r := range s.Activities {
		state.activities.records[id] = r
	}
	for id, r := range s.Resources {
		state.resources.records[id] = r
	}
	for id, r := range s.Events {
		state.events.records[id] = r
	}
	state.lastID = s.LastID
	return state
}

// Store provides an in-memory transactional registry store. One lock
// serializes all mutation; reads work on cloned state.
type Store struct {
	mu     sync.RWMutex
	state  registryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newRegistryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// transaction is a mutation set applied to a cloned copy of the store state.
// The identifier counter is part of that state, so a rejected transaction
// rolls the counter back along with every other mutation.
type transaction struct {
	state   registryState
	changes []Change
	now     time.Time
}

var _ Transaction = (*transaction)(nil)

// nextID issues the next identifier from the shared counter. Wraparound of
// the 64-bit counter is not handled; at one create per nanosecond it takes
// centuries to exhaust.
func (tx *transaction) nextID() uint64 {
	tx.state.lastID++
	return tx.state.lastID
}

func (tx *transaction) record(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state to rules and authorization checks.
func (tx *transaction) Snapshot() TransactionView {
	return &view{state: &tx.state}
}

// CreateUser stores a new user, assigning the next shared identifier.
func (tx *transaction) CreateUser(u User) (User, error) {
	u.ID = tx.nextID()
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	tx.state.users.insert(u.ID, u)
	tx.record(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// UpdateUser mutates a user in place, preserving identifier and creation time.
func (tx *transaction) UpdateUser(id uint64, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users.get(id)
	if !ok {
		return User{}, domain.NewNotFound("user %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.users.insert(id, current)
	tx.record(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteUser removes a user and returns the removed record.
func (tx *transaction) DeleteUser(id uint64) (User, error) {
	removed, ok := tx.state.users.remove(id)
	if !ok {
		return User{}, domain.NewNotFound("user %d not found", id)
	}
	tx.record(Change{Entity: domain.EntityUser, Action: domain.ActionDelete, Before: removed})
	return removed, nil
}

// CreatePlot stores a new plot record.
func (tx *transaction) CreatePlot(p Plot) (Plot, error) {
	p.ID = tx.nextID()
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plots.insert(p.ID, p)
	tx.record(Change{Entity: domain.EntityPlot, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePlot mutates an existing plot.
func (tx *transaction) UpdatePlot(id uint64, mutator func(*Plot) error) (Plot, error) {
	current, ok := tx.state.plots.get(id)
	if !ok {
		return Plot{}, domain.NewNotFound("plot %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Plot{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.plots.insert(id, current)
	tx.record(Change{Entity: domain.EntityPlot, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeletePlot removes a plot and returns the removed record.
func (tx *transaction) DeletePlot(id uint64) (Plot, error) {
	removed, ok := tx.state.plots.remove(id)
	if !ok {
		return Plot{}, domain.NewNotFound("plot %d not found", id)
	}
	tx.record(Change{Entity: domain.EntityPlot, Action: domain.ActionDelete, Before: removed})
	return removed, nil
}

// CreateActivity stores a new activity record.
func (tx *transaction) CreateActivity(a Activity) (Activity, error) {
	a.ID = tx.nextID()
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.activities.insert(a.ID, a)
	tx.record(Change{Entity: domain.EntityActivity, Action: domain.ActionCreate, After: a})
	return a, nil
}

// UpdateActivity mutates an existing activity.
func (tx *transaction) UpdateActivity(id uint64, mutator func(*Activity) error) (Activity, error) {
	current, ok := tx.state.activities.get(id)
	if !ok {
		return Activity{}, domain.NewNotFound("activity %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Activity{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.activities.insert(id, current)
	tx.record(Change{Entity: domain.EntityActivity, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteActivity removes an activity and returns the removed record.
func (tx *transaction) DeleteActivity(id uint64) (Activity, error) {
	removed, ok := tx.state.activities.remove(id)
	if !ok {
		return Activity{}, domain.NewNotFound("activity %d not found", id)
	}
	tx.record(Change{Entity: domain.EntityActivity, Action: domain.ActionDelete, Before: removed})
	return removed, nil
}

// CreateResource stores a new resource record.
func (tx *transaction) CreateResource(r Resource) (Resource, error) {
	r.ID = tx.nextID()
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.resources.insert(r.ID, r)
	tx.record(Change{Entity: domain.EntityResource, Action: domain.ActionCreate, After: r})
	return r, nil
}

// UpdateResource mutates an existing resource.
func (tx *transaction) UpdateResource(id uint64, mutator func(*Resource) error) (Resource, error) {
	current, ok := tx.state.resources.get(id)
	if !ok {
		return Resource{}, domain.NewNotFound("resource %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Resource{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.resources.insert(id, current)
	tx.record(Change{Entity: domain.EntityResource, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteResource removes a resource and returns the removed record.
func (tx *transaction) DeleteResource(id uint64) (Resource, error) {
	removed, ok := tx.state.resources.remove(id)
	if !ok {
		return Resource{}, domain.NewNotFound("resource %d not found", id)
	}
	tx.record(Change{Entity: domain.EntityResource, Action: domain.ActionDelete, Before: removed})
	return removed, nil
}

// CreateEvent stores a new event record.
func (tx *transaction) CreateEvent(e Event) (Event, error) {
	e.ID = tx.nextID()
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.events.insert(e.ID, e)
	tx.record(Change{Entity: domain.EntityEvent, Action: domain.ActionCreate, After: e})
	return e, nil
}

// UpdateEvent mutates an existing event.
func (tx *transaction) UpdateEvent(id uint64, mutator func(*Event) error) (Event, error) {
	current, ok := tx.state.events.get(id)
	if !ok {
		return Event{}, domain.NewNotFound("event %d not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Event{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.events.insert(id, current)
	tx.record(Change{Entity: domain.EntityEvent, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteEvent removes an event and returns the removed record.
func (tx *transaction) DeleteEvent(id uint64) (Event, error) {
	removed, ok := tx.state.events.remove(id)
	if !ok {
		return Event{}, domain.NewNotFound("event %d not found", id)
	}
	tx.record(Change{Entity: domain.EntityEvent, Action: domain.ActionDelete, Before: removed})
	return removed, nil
}

// view exposes a read-only snapshot of registry state.
type view struct {
	state *registryState
}

var _ TransactionView = (*view)(nil)

func (v *view) ListUsers() []User           { return v.state.users.list() }
func (v *view) ListPlots() []Plot           { return v.state.plots.list() }
func (v *view) ListActivities() []Activity  { return v.state.activities.list() }
func (v *view) ListResources() []Resource   { return v.state.resources.list() }
func (v *view) ListEvents() []Event         { return v.state.events.list() }
func (v *view) FindUser(id uint64) (User, bool)         { return v.state.users.get(id) }
func (v *view) FindPlot(id uint64) (Plot, bool)         { return v.state.plots.get(id) }
func (v *view) FindActivity(id uint64) (Activity, bool) { return v.state.activities.get(id) }
func (v *view) FindResource(id uint64) (Resource, bool) { return v.state.resources.get(id) }
func (v *view) FindEvent(id uint64) (Event, bool)       { return v.state.events.get(id) }

// FindUserBy returns the first user matching the predicate in id order.
func (v *view) FindUserBy(predicate func(User) bool) (User, bool) {
	return v.state.users.findBy(predicate)
}

// RunInTransaction executes fn within a transactional copy of the store
// state, evaluates the registered rules against the resulting state, and
// commits only when no blocking violation is present.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, tx.Snapshot(), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(&view{state: &snapshot})
}

// GetUser retrieves a user by id from committed state.
func (s *Store) GetUser(id uint64) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.users.get(id)
}

// ListUsers returns all users from committed state in id order.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.users.list()
}

// GetPlot retrieves a plot by id.
func (s *Store) GetPlot(id uint64) (Plot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.plots.get(id)
}

// ListPlots returns all plots in id order.
func (s *Store) ListPlots() []Plot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.plots.list()
}

// GetActivity retrieves an activity by id.
func (s *Store) GetActivity(id uint64) (Activity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.activities.get(id)
}

// ListActivities returns all activities in id order.
func (s *Store) ListActivities() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.activities.list()
}

// GetResource retrieves a resource by id.
func (s *Store) GetResource(id uint64) (Resource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.resources.get(id)
}

// ListResources returns all resources in id order.
func (s *Store) ListResources() []Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.resources.list()
}

// GetEvent retrieves an event by id.
func (s *Store) GetEvent(id uint64) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.events.get(id)
}

// ListEvents returns all events in id order.
func (s *Store) ListEvents() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.events.list()
}

// LastID reports the most recently committed identifier.
func (s *Store) LastID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.lastID
}

// ExportState returns a snapshot of the full store state for durable backends.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromState(s.state)
}

// ImportState replaces the store state from a snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateFromSnapshot(migrateSnapshot(snapshot))
}
