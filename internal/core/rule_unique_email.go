package core

import (
	"context"
	"fmt"

	"gardencore/pkg/domain"
)

// NewUniqueEmailRule returns the in-transaction rule enforcing that no two
// users share an email address. Evaluating the whole post-mutation state
// means a user keeping their own email on update never trips the rule.
func NewUniqueEmailRule() domain.Rule {
	return uniqueEmailRule{}
}

type uniqueEmailRule struct{}

func (uniqueEmailRule) Name() string { return "unique_email" }

func (uniqueEmailRule) Evaluate(_ context.Context, view domain.TransactionView, _ []domain.Change) (domain.Result, error) {
	seen := make(map[string]uint64)
	res := domain.Result{}
	for _, user := range view.ListUsers() {
		first, dup := seen[user.Email]
		if !dup {
			seen[user.Email] = user.ID
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "unique_email",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("email %q already registered to user %d", user.Email, first),
			Entity:   domain.EntityUser,
			EntityID: user.ID,
		})
	}
	return res, nil
}
