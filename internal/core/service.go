package core

import (
	"context"
	"errors"
	"time"

	"gardencore/internal/infra/persistence/memory"
	"gardencore/pkg/domain"
)

// Service exposes the transactional registry operations for the five record
// kinds. Every mutation runs validation, the authorization gate, and the
// rules engine before committing.
type Service struct {
	store   PersistentStore
	authz   Authorizer
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		authz: RoleGate{},
		clock: ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// run wraps an operation with tracing, metrics, and logging.
func (s *Service) run(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if span != nil {
		span.End(err)
	}
	if s.logger != nil {
		if err != nil {
			s.logger.Error("operation failed", "operation", operation, "error", err)
		} else {
			s.logger.Debug("operation completed", "operation", operation,
				"duration_ms", float64(duration)/float64(time.Millisecond))
		}
	}
	return err
}

// mapRuleError converts a blocking rule violation into the invalid_payload
// taxonomy so transport layers report it like any other rejected input.
func mapRuleError(err error) error {
	var violation domain.RuleViolationError
	if errors.As(err, &violation) {
		return domain.NewInvalidPayload("%s", violation.Error())
	}
	return err
}

// RegisterUser validates and persists a new member profile. The record owner
// is stamped from the caller principal, and a blank role defaults to user.
func (s *Service) RegisterUser(ctx context.Context, caller Caller, payload UserPayload) (User, Result, error) {
	var (
		created User
		res     Result
	)
	err := s.run(ctx, "register_user", func(ctx context.Context) error {
		if err := ValidateUserPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionCreate, domain.EntityUser); err != nil {
				return err
			}
			var txErr error
			created, txErr = tx.CreateUser(User{
				Owner: caller.Principal,
				Name:  payload.Name,
				Email: payload.Email,
				Phone: payload.Phone,
				Role:  payload.Role,
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return User{}, res, err
	}
	return created, res, nil
}

// GetUser retrieves a user by id.
func (s *Service) GetUser(ctx context.Context, id uint64) (User, error) {
	var out User
	err := s.run(ctx, "get_user", func(context.Context) error {
		u, ok := s.store.GetUser(id)
		if !ok {
			return domain.NewNotFound("user %d not found", id)
		}
		out = u
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// ListUsers returns all users in registration order. An empty registry is
// reported as not_found.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	err := s.run(ctx, "list_users", func(context.Context) error {
		out = s.store.ListUsers()
		if len(out) == 0 {
			return domain.NewNotFound("no users registered")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateUser replaces the mutable fields of a user. A blank payload role
// keeps the stored role.
func (s *Service) UpdateUser(ctx context.Context, caller Caller, id uint64, payload UserPayload) (User, Result, error) {
	var (
		updated User
		res     Result
	)
	err := s.run(ctx, "update_user", func(ctx context.Context) error {
		if err := ValidateUserPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionUpdate, domain.EntityUser); err != nil {
				return err
			}
			var txErr error
			updated, txErr = tx.UpdateUser(id, func(u *User) error {
				u.Name = payload.Name
				u.Email = payload.Email
				u.Phone = payload.Phone
				if payload.Role != "" {
					u.Role = payload.Role
				}
				return nil
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return User{}, res, err
	}
	return updated, res, nil
}

// DeleteUser removes a user and returns the removed record.
func (s *Service) DeleteUser(ctx context.Context, caller Caller, id uint64) (User, Result, error) {
	var (
		removed User
		res     Result
	)
	err := s.run(ctx, "delete_user", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionDelete, domain.EntityUser); err != nil {
				return err
			}
			var txErr error
			removed, txErr = tx.DeleteUser(id)
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return User{}, res, err
	}
	return removed, res, nil
}

// CreatePlot validates and persists a new plot assignment.
func (s *Service) CreatePlot(ctx context.Context, caller Caller, payload PlotPayload) (Plot, Result, error) {
	var (
		created Plot
		res     Result
	)
	err := s.run(ctx, "create_plot", func(ctx context.Context) error {
		if err := ValidatePlotPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionCreate, domain.EntityPlot); err != nil {
				return err
			}
			var txErr error
			created, txErr = tx.CreatePlot(Plot{
				OwnerID:       payload.OwnerID,
				Size:          payload.Size,
				Location:      payload.Location,
				ReservedUntil: payload.ReservedUntil,
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Plot{}, res, err
	}
	return created, res, nil
}

// GetPlot retrieves a plot by id.
func (s *Service) GetPlot(ctx context.Context, id uint64) (Plot, error) {
	var out Plot
	err := s.run(ctx, "get_plot", func(context.Context) error {
		p, ok := s.store.GetPlot(id)
		if !ok {
			return domain.NewNotFound("plot %d not found", id)
		}
		out = p
		return nil
	})
	if err != nil {
		return Plot{}, err
	}
	return out, nil
}

// ListPlots returns all plots in creation order.
func (s *Service) ListPlots(ctx context.Context) ([]Plot, error) {
	var out []Plot
	err := s.run(ctx, "list_plots", func(context.Context) error {
		out = s.store.ListPlots()
		if len(out) == 0 {
			return domain.NewNotFound("no plots recorded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePlot replaces the mutable fields of a plot.
func (s *Service) UpdatePlot(ctx context.Context, caller Caller, id uint64, payload PlotPayload) (Plot, Result, error) {
	var (
		updated Plot
		res     Result
	)
	err := s.run(ctx, "update_plot", func(ctx context.Context) error {
		if err := ValidatePlotPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionUpdate, domain.EntityPlot); err != nil {
				return err
			}
			var txErr error
			updated, txErr = tx.UpdatePlot(id, func(p *Plot) error {
				p.OwnerID = payload.OwnerID
				p.Size = payload.Size
				p.Location = payload.Location
				p.ReservedUntil = payload.ReservedUntil
				return nil
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Plot{}, res, err
	}
	return updated, res, nil
}

// DeletePlot removes a plot and returns the removed record.
func (s *Service) DeletePlot(ctx context.Context, caller Caller, id uint64) (Plot, Result, error) {
	var (
		removed Plot
		res     Result
	)
	err := s.run(ctx, "delete_plot", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionDelete, domain.EntityPlot); err != nil {
				return err
			}
			var txErr error
			removed, txErr = tx.DeletePlot(id)
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Plot{}, res, err
	}
	return removed, res, nil
}

// CreateActivity validates and logs work against a plot.
func (s *Service) CreateActivity(ctx context.Context, caller Caller, payload ActivityPayload) (Activity, Result, error) {
	var (
		created Activity
		res     Result
	)
	err := s.run(ctx, "create_activity", func(ctx context.Context) error {
		if err := ValidateActivityPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionCreate, domain.EntityActivity); err != nil {
				return err
			}
			var txErr error
			created, txErr = tx.CreateActivity(Activity{
				PlotID:      payload.PlotID,
				Description: payload.Description,
				Date:        payload.Date,
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Activity{}, res, err
	}
	return created, res, nil
}

// GetActivity retrieves an activity by id.
func (s *Service) GetActivity(ctx context.Context, id uint64) (Activity, error) {
	var out Activity
	err := s.run(ctx, "get_activity", func(context.Context) error {
		a, ok := s.store.GetActivity(id)
		if !ok {
			return domain.NewNotFound("activity %d not found", id)
		}
		out = a
		return nil
	})
	if err != nil {
		return Activity{}, err
	}
	return out, nil
}

// ListActivities returns all activities in creation order.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	var out []Activity
	err := s.run(ctx, "list_activities", func(context.Context) error {
		out = s.store.ListActivities()
		if len(out) == 0 {
			return domain.NewNotFound("no activities logged")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateActivity replaces the mutable fields of an activity.
func (s *Service) UpdateActivity(ctx context.Context, caller Caller, id uint64, payload ActivityPayload) (Activity, Result, error) {
	var (
		updated Activity
		res     Result
	)
	err := s.run(ctx, "update_activity", func(ctx context.Context) error {
		if err := ValidateActivityPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionUpdate, domain.EntityActivity); err != nil {
				return err
			}
			var txErr error
			updated, txErr = tx.UpdateActivity(id, func(a *Activity) error {
				a.PlotID = payload.PlotID
				a.Description = payload.Description
				a.Date = payload.Date
				return nil
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Activity{}, res, err
	}
	return updated, res, nil
}

// DeleteActivity removes an activity and returns the removed record.
func (s *Service) DeleteActivity(ctx context.Context, caller Caller, id uint64) (Activity, Result, error) {
	var (
		removed Activity
		res     Result
	)
	err := s.run(ctx, "delete_activity", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionDelete, domain.EntityActivity); err != nil {
				return err
			}
			var txErr error
			removed, txErr = tx.DeleteActivity(id)
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Activity{}, res, err
	}
	return removed, res, nil
}

// CreateResource validates and persists a shared resource.
func (s *Service) CreateResource(ctx context.Context, caller Caller, payload ResourcePayload) (Resource, Result, error) {
	var (
		created Resource
		res     Result
	)
	err := s.run(ctx, "create_resource", func(ctx context.Context) error {
		if err := ValidateResourcePayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionCreate, domain.EntityResource); err != nil {
				return err
			}
			var txErr error
			created, txErr = tx.CreateResource(Resource{
				Name:      payload.Name,
				Quantity:  payload.Quantity,
				Available: payload.Available,
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Resource{}, res, err
	}
	return created, res, nil
}

// GetResource retrieves a resource by id.
func (s *Service) GetResource(ctx context.Context, id uint64) (Resource, error) {
	var out Resource
	err := s.run(ctx, "get_resource", func(context.Context) error {
		r, ok := s.store.GetResource(id)
		if !ok {
			return domain.NewNotFound("resource %d not found", id)
		}
		out = r
		return nil
	})
	if err != nil {
		return Resource{}, err
	}
	return out, nil
}

// ListResources returns all resources in creation order.
func (s *Service) ListResources(ctx context.Context) ([]Resource, error) {
	var out []Resource
	err := s.run(ctx, "list_resources", func(context.Context) error {
		out = s.store.ListResources()
		if len(out) == 0 {
			return domain.NewNotFound("no resources recorded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateResource replaces the mutable fields of a resource.
func (s *Service) UpdateResource(ctx context.Context, caller Caller, id uint64, payload ResourcePayload) (Resource, Result, error) {
	var (
		updated Resource
		res     Result
	)
	err := s.run(ctx, "update_resource", func(ctx context.Context) error {
		if err := ValidateResourcePayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionUpdate, domain.EntityResource); err != nil {
				return err
			}
			var txErr error
			updated, txErr = tx.UpdateResource(id, func(r *Resource) error {
				r.Name = payload.Name
				r.Quantity = payload.Quantity
				r.Available = payload.Available
				return nil
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Resource{}, res, err
	}
	return updated, res, nil
}

// DeleteResource removes a resource and returns the removed record.
func (s *Service) DeleteResource(ctx context.Context, caller Caller, id uint64) (Resource, Result, error) {
	var (
		removed Resource
		res     Result
	)
	err := s.run(ctx, "delete_resource", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionDelete, domain.EntityResource); err != nil {
				return err
			}
			var txErr error
			removed, txErr = tx.DeleteResource(id)
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Resource{}, res, err
	}
	return removed, res, nil
}

// CreateEvent validates and persists a community event.
func (s *Service) CreateEvent(ctx context.Context, caller Caller, payload EventPayload) (Event, Result, error) {
	var (
		created Event
		res     Result
	)
	err := s.run(ctx, "create_event", func(ctx context.Context) error {
		if err := ValidateEventPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionCreate, domain.EntityEvent); err != nil {
				return err
			}
			var txErr error
			created, txErr = tx.CreateEvent(Event{
				Title:       payload.Title,
				Description: payload.Description,
				Date:        payload.Date,
				Location:    payload.Location,
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Event{}, res, err
	}
	return created, res, nil
}

// GetEvent retrieves an event by id.
func (s *Service) GetEvent(ctx context.Context, id uint64) (Event, error) {
	var out Event
	err := s.run(ctx, "get_event", func(context.Context) error {
		e, ok := s.store.GetEvent(id)
		if !ok {
			return domain.NewNotFound("event %d not found", id)
		}
		out = e
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	return out, nil
}

// ListEvents returns all events in creation order.
func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	var out []Event
	err := s.run(ctx, "list_events", func(context.Context) error {
		out = s.store.ListEvents()
		if len(out) == 0 {
			return domain.NewNotFound("no events scheduled")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateEvent replaces the mutable fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, caller Caller, id uint64, payload EventPayload) (Event, Result, error) {
	var (
		updated Event
		res     Result
	)
	err := s.run(ctx, "update_event", func(ctx context.Context) error {
		if err := ValidateEventPayload(payload); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionUpdate, domain.EntityEvent); err != nil {
				return err
			}
			var txErr error
			updated, txErr = tx.UpdateEvent(id, func(e *Event) error {
				e.Title = payload.Title
				e.Description = payload.Description
				e.Date = payload.Date
				e.Location = payload.Location
				return nil
			})
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Event{}, res, err
	}
	return updated, res, nil
}

// DeleteEvent removes an event and returns the removed record.
func (s *Service) DeleteEvent(ctx context.Context, caller Caller, id uint64) (Event, Result, error) {
	var (
		removed Event
		res     Result
	)
	err := s.run(ctx, "delete_event", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := s.authz.Authorize(tx.Snapshot(), caller, domain.ActionDelete, domain.EntityEvent); err != nil {
				return err
			}
			var txErr error
			removed, txErr = tx.DeleteEvent(id)
			return txErr
		})
		return mapRuleError(err)
	})
	if err != nil {
		return Event{}, res, err
	}
	return removed, res, nil
}
