package core

import (
	"context"
	"fmt"

	"gardencore/pkg/domain"
)

// NewActivityPlotRule returns the rule requiring that a newly logged activity
// references an existing plot. Creation-only, mirroring the plot owner rule.
func NewActivityPlotRule() domain.Rule {
	return activityPlotRule{}
}

type activityPlotRule struct{}

func (activityPlotRule) Name() string { return "activity_plot" }

func (activityPlotRule) Evaluate(_ context.Context, view domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityActivity || change.Action != domain.ActionCreate {
			continue
		}
		activity, ok := change.After.(domain.Activity)
		if !ok {
			continue
		}
		if _, ok := view.FindPlot(activity.PlotID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "activity_plot",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("activity references unknown plot %d", activity.PlotID),
				Entity:   domain.EntityActivity,
				EntityID: activity.ID,
			})
		}
	}
	return res, nil
}
