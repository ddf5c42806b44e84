package core

import (
	"context"
	"testing"

	"gardencore/pkg/domain"
)

func adminCaller(t *testing.T, svc *Service) Caller {
	t.Helper()
	admin, _, err := svc.RegisterUser(context.Background(), Caller{Principal: "bootstrap"}, UserPayload{
		Name:  "Root",
		Email: "root@example.com",
		Phone: "0000000000",
		Role:  domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	return Caller{ID: admin.ID, Principal: "bootstrap"}
}

func TestRegisterUserStampsOwnerAndDefaultsRole(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())

	user, _, err := svc.RegisterUser(context.Background(), Caller{Principal: "alice-principal"}, UserPayload{
		Name:  "Alice",
		Email: "alice@example.com",
		Phone: "0123456789",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Owner != "alice-principal" {
		t.Fatalf("expected owner from caller principal, got %q", user.Owner)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default role, got %q", user.Role)
	}

	got, err := svc.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != user {
		t.Fatalf("get mismatch: %+v vs %+v", got, user)
	}
}

func TestIdentifiersAreSharedAcrossKinds(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	caller := Caller{Principal: "p"}

	user, _, err := svc.RegisterUser(ctx, caller, UserPayload{Name: "A", Email: "a@example.com", Phone: "0123456789"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	plot, _, err := svc.CreatePlot(ctx, caller, PlotPayload{OwnerID: user.ID, Size: "4x8", Location: "row 2"})
	if err != nil {
		t.Fatalf("create plot: %v", err)
	}
	activity, _, err := svc.CreateActivity(ctx, caller, ActivityPayload{PlotID: plot.ID, Description: "sow carrots", Date: "2026-03-01"})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	resource, _, err := svc.CreateResource(ctx, caller, ResourcePayload{Name: "wheelbarrow", Quantity: 1, Available: true})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}
	event, _, err := svc.CreateEvent(ctx, caller, EventPayload{Title: "open day", Description: "tours", Date: "2026-05-01", Location: "gate"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	ids := []uint64{user.ID, plot.ID, activity.ID, resource.ID, event.ID}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[i-1]+1 {
			t.Fatalf("expected consecutive shared ids, got %v", ids)
		}
	}
}

func TestDuplicateEmailRejectedOnCreateAndUpdate(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	admin := adminCaller(t, svc)

	first, _, err := svc.RegisterUser(ctx, Caller{Principal: "p1"}, UserPayload{Name: "A", Email: "a@example.com", Phone: "0123456789"})
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	if _, _, err := svc.RegisterUser(ctx, Caller{Principal: "p2"}, UserPayload{Name: "B", Email: "a@example.com", Phone: "0123456788"}); !domain.IsKind(err, domain.KindInvalidPayload) {
		t.Fatalf("expected invalid_payload for duplicate email, got %v", err)
	}

	second, _, err := svc.RegisterUser(ctx, Caller{Principal: "p2"}, UserPayload{Name: "B", Email: "b@example.com", Phone: "0123456788"})
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if _, _, err := svc.UpdateUser(ctx, admin, second.ID, UserPayload{Name: "B", Email: first.Email, Phone: "0123456788"}); !domain.IsKind(err, domain.KindInvalidPayload) {
		t.Fatalf("expected invalid_payload updating to taken email, got %v", err)
	}

	// Keeping your own email on update is not a duplicate.
	if _, _, err := svc.UpdateUser(ctx, admin, second.ID, UserPayload{Name: "B renamed", Email: second.Email, Phone: "0123456788"}); err != nil {
		t.Fatalf("update keeping own email: %v", err)
	}
}

func TestUpdatePreservesCreationTimeThroughService(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	admin := adminCaller(t, svc)

	created, _, err := svc.CreateEvent(ctx, admin, EventPayload{Title: "fair", Description: "annual", Date: "2026-06-01", Location: "green"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	updated, _, err := svc.UpdateEvent(ctx, admin, created.ID, EventPayload{Title: "fair", Description: "moved", Date: "2026-06-08", Location: "green"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("creation time changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if updated.ID != created.ID {
		t.Fatalf("identifier changed: %d -> %d", created.ID, updated.ID)
	}
}

func TestPlotRequiresRegisteredOwner(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())

	if _, _, err := svc.CreatePlot(context.Background(), Caller{Principal: "p"}, PlotPayload{OwnerID: 99, Size: "4x8", Location: "row 1"}); !domain.IsKind(err, domain.KindInvalidPayload) {
		t.Fatalf("expected invalid_payload for unknown owner, got %v", err)
	}
}

func TestActivityRequiresExistingPlot(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())

	if _, _, err := svc.CreateActivity(context.Background(), Caller{Principal: "p"}, ActivityPayload{PlotID: 42, Description: "weed", Date: "2026-03-05"}); !domain.IsKind(err, domain.KindInvalidPayload) {
		t.Fatalf("expected invalid_payload for unknown plot, got %v", err)
	}
}

func TestUpdateRequiresAdminRole(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	member, _, err := svc.RegisterUser(ctx, Caller{Principal: "member"}, UserPayload{Name: "M", Email: "m@example.com", Phone: "0123456789"})
	if err != nil {
		t.Fatalf("register member: %v", err)
	}
	resource, _, err := svc.CreateResource(ctx, Caller{Principal: "member"}, ResourcePayload{Name: "spade", Quantity: 2, Available: true})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	payload := ResourcePayload{Name: "spade", Quantity: 1, Available: false}
	if _, _, err := svc.UpdateResource(ctx, Caller{}, resource.ID, payload); !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected unauthorized for anonymous caller, got %v", err)
	}
	if _, _, err := svc.UpdateResource(ctx, Caller{ID: member.ID}, resource.ID, payload); !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected unauthorized for non-admin caller, got %v", err)
	}

	admin := adminCaller(t, svc)
	updated, _, err := svc.UpdateResource(ctx, admin, resource.ID, payload)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Quantity != 1 || updated.Available {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, _, err := svc.DeleteResource(ctx, Caller{ID: member.ID}, resource.ID); !domain.IsKind(err, domain.KindUnauthorized) {
		t.Fatalf("expected unauthorized delete for non-admin, got %v", err)
	}
	removed, _, err := svc.DeleteResource(ctx, admin, resource.ID)
	if err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if removed.ID != resource.ID {
		t.Fatalf("expected removed record %d, got %+v", resource.ID, removed)
	}
}

func TestEmptyListsReportNotFound(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()

	if _, err := svc.ListUsers(ctx); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found for empty users, got %v", err)
	}
	if _, err := svc.ListPlots(ctx); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found for empty plots, got %v", err)
	}
	if _, err := svc.ListActivities(ctx); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found for empty activities, got %v", err)
	}
	if _, err := svc.ListResources(ctx); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found for empty resources, got %v", err)
	}
	if _, err := svc.ListEvents(ctx); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found for empty events, got %v", err)
	}
}

func TestGetMissingRecordReportsNotFound(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())

	if _, err := svc.GetEvent(context.Background(), 7); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestValidationFailureDoesNotConsumeIdentifier(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	ctx := context.Background()
	caller := Caller{Principal: "p"}

	if _, _, err := svc.RegisterUser(ctx, caller, UserPayload{Name: "", Email: "a@example.com", Phone: "0123456789"}); !domain.IsKind(err, domain.KindInvalidPayload) {
		t.Fatalf("expected invalid_payload, got %v", err)
	}
	user, _, err := svc.RegisterUser(ctx, caller, UserPayload{Name: "A", Email: "a@example.com", Phone: "0123456789"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected first issued id 1, got %d", user.ID)
	}
}
