package domain

import (
	"context"
	"testing"
)

type staticRule struct {
	name       string
	violations []Violation
	err        error
}

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, TransactionView, []Change) (Result, error) {
	return Result{Violations: r.violations}, r.err
}

func TestEngineAggregatesViolationsInRegistrationOrder(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{name: "first", violations: []Violation{
		{Rule: "first", Severity: SeverityWarn, Message: "warned"},
	}})
	engine.Register(staticRule{name: "second", violations: []Violation{
		{Rule: "second", Severity: SeverityBlock, Message: "blocked"},
	}})

	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "first" || res.Violations[1].Rule != "second" {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking result")
	}
	if v, ok := res.FirstBlocking(); !ok || v.Message != "blocked" {
		t.Fatalf("unexpected first blocking: %+v/%v", v, ok)
	}
}

func TestWarnOnlyResultDoesNotBlock(t *testing.T) {
	res := Result{Violations: []Violation{
		{Rule: "advisory", Severity: SeverityWarn, Message: "low water"},
		{Rule: "audit", Severity: SeverityLog, Message: "noted"},
	}}
	if res.HasBlocking() {
		t.Fatalf("warn and log severities must not block")
	}
	if _, ok := res.FirstBlocking(); ok {
		t.Fatalf("expected no blocking violation")
	}
}

func TestRuleViolationErrorUsesFirstBlockingMessage(t *testing.T) {
	err := RuleViolationError{Result: Result{Violations: []Violation{
		{Rule: "a", Severity: SeverityWarn, Message: "ignored"},
		{Rule: "b", Severity: SeverityBlock, Message: "email taken"},
	}}}
	if err.Error() != "email taken" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	empty := RuleViolationError{}
	if empty.Error() != "transaction blocked by rules" {
		t.Fatalf("unexpected fallback %q", empty.Error())
	}
}
