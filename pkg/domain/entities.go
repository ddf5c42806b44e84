// Package domain defines the persistent entities, value types, and rule
// evaluation primitives used by gardencore.
package domain

import "time"

// EntityType identifies the kind of record stored in the registry.
type EntityType string

// Supported entity kind identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a member profile record.
	EntityUser EntityType = "user"
	// EntityPlot identifies a land plot record.
	EntityPlot EntityType = "plot"
	// EntityActivity identifies a logged activity record.
	EntityActivity EntityType = "activity"
	// EntityResource identifies a shared resource record.
	EntityResource EntityType = "resource"
	// EntityEvent identifies a community event record.
	EntityEvent EntityType = "event"
)

// Role classifies a user for authorization purposes.
type Role string

// Canonical roles recognised by the authorization gate.
const (
	// RoleAdmin may update and delete records of any kind.
	RoleAdmin Role = "admin"
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "user"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all registry records. Identifiers are
// issued from one shared counter, so they are strictly increasing across all
// five entity kinds and never reused.
type Base struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a member profile of the gardening scheme.
type User struct {
	Base
	Owner string `json:"owner"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
}

// Plot represents a land plot assigned to a user.
type Plot struct {
	Base
	OwnerID       uint64 `json:"owner_id"`
	Size          string `json:"size"`
	Location      string `json:"location"`
	ReservedUntil string `json:"reserved_until"`
}

// Activity represents work logged against a plot.
type Activity struct {
	Base
	PlotID      uint64 `json:"plot_id"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Resource represents a shared tool or supply.
type Resource struct {
	Base
	Name      string `json:"name"`
	Quantity  uint64 `json:"quantity"`
	Available bool   `json:"available"`
}

// Event represents a community event.
type Event struct {
	Base
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
}

// Caller identifies the principal invoking a service operation. ID refers to
// a stored User record when the caller is registered; zero means anonymous.
type Caller struct {
	ID        uint64 `json:"id"`
	Principal string `json:"principal"`
}

// UserPayload carries the mutable fields of a User.
type UserPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  Role   `json:"role,omitempty"`
}

// PlotPayload carries the mutable fields of a Plot.
type PlotPayload struct {
	OwnerID       uint64 `json:"owner_id"`
	Size          string `json:"size"`
	Location      string `json:"location"`
	ReservedUntil string `json:"reserved_until"`
}

// ActivityPayload carries the mutable fields of an Activity.
type ActivityPayload struct {
	PlotID      uint64 `json:"plot_id"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// ResourcePayload carries the mutable fields of a Resource.
type ResourcePayload struct {
	Name      string `json:"name"`
	Quantity  uint64 `json:"quantity"`
	Available bool   `json:"available"`
}

// EventPayload carries the mutable fields of an Event.
type EventPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Location    string `json:"location"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID uint64
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// FirstBlocking returns the first blocking violation, if any.
func (r Result) FirstBlocking() (Violation, bool) {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return v, true
		}
	}
	return Violation{}, false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	if v, ok := e.Result.FirstBlocking(); ok {
		return v.Message
	}
	return "transaction blocked by rules"
}
