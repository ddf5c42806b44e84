package core

import (
	"context"
	"fmt"

	"gardencore/pkg/domain"
)

// NewPlotOwnerRule returns the rule requiring that a newly created plot
// references a registered user. The check is creation-only: deleting a user
// later leaves existing plots untouched.
func NewPlotOwnerRule() domain.Rule {
	return plotOwnerRule{}
}

type plotOwnerRule struct{}

func (plotOwnerRule) Name() string { return "plot_owner" }

func (plotOwnerRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityPlot || change.Action != domain.ActionCreate {
			continue
		}
		plot, ok := change.After.(domain.Plot)
		if !ok {
			continue
		}
		if _, ok := view.FindUser(plot.OwnerID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "plot_owner",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("plot owner %d is not a registered user", plot.OwnerID),
				Entity:   domain.EntityPlot,
				EntityID: plot.ID,
			})
		}
	}
	return res, nil
}
