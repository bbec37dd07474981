// Package executor applies plans through a cloud provider, preserving the
// dependency edge: the security group always exists before an instance
// references it.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/internal/telemetry"
	"github.com/yairfalse/varusta/journal"
	"github.com/yairfalse/varusta/planner"
	"github.com/yairfalse/varusta/providers"
	"github.com/yairfalse/varusta/types"
)

// Engine executes plan decisions in order.
type Engine struct {
	provider providers.CloudProvider
	journal  *journal.Journal
	options  Options

	// groupID is the active security group once it is known during a run.
	groupID string
}

// NewEngine creates an executor engine.
func NewEngine(provider providers.CloudProvider, jrnl *journal.Journal, options Options) *Engine {
	return &Engine{
		provider: provider,
		journal:  jrnl,
		options:  options,
	}
}

// Apply executes every decision in plan order. desired supplies the group
// name for instance-only plans where the group already exists.
func (e *Engine) Apply(ctx context.Context, plan *planner.Plan, desired types.DesiredState) (*Result, error) {
	startTime := time.Now()
	result := &Result{
		StartTime:      startTime,
		TotalDecisions: len(plan.Decisions),
		Results:        make([]DecisionResult, 0, len(plan.Decisions)),
	}

	if err := e.journal.Append(journal.EntryApplying, "", plan.Summarize()); err != nil {
		return nil, fmt.Errorf("failed to log apply start: %w", err)
	}

	for _, decision := range plan.Decisions {
		single := e.executeOne(ctx, decision, desired)
		result.Results = append(result.Results, single)

		switch single.Status {
		case StatusSuccess:
			result.SuccessfulCount++
			telemetry.RecordDecisionApplied(ctx, decision.Action, decision.ResourceType)
		case StatusFailed:
			result.FailedCount++
			telemetry.RecordApplyFailure(ctx, decision.Action, decision.ResourceType)
		case StatusSkipped:
			result.SkippedCount++
		}

		if single.Status == StatusFailed && !e.options.ContinueOnFailure {
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.PartialFailure = result.FailedCount > 0

	if err := e.journal.Append(journal.EntryApplied, "", result); err != nil {
		return result, fmt.Errorf("failed to log apply result: %w", err)
	}
	return result, nil
}

// executeOne runs a single decision and records it in the journal.
func (e *Engine) executeOne(ctx context.Context, decision types.Decision, desired types.DesiredState) DecisionResult {
	result := DecisionResult{
		Decision:  decision,
		Status:    StatusPending,
		StartTime: time.Now(),
	}

	if err := decision.Validate(); err != nil {
		return e.fail(result, "invalid decision", err)
	}

	if e.options.DryRun {
		result.Status = StatusSkipped
		result.Error = ""
		return e.finish(result)
	}

	result.Status = StatusExecuting
	if err := e.journal.Append(journal.EntryApplying, decision.ResourceID, decision); err != nil {
		return e.fail(result, "failed to log decision start", err)
	}

	resourceID, err := e.dispatch(ctx, decision, desired)
	if err != nil {
		if jerr := e.journal.AppendError(journal.EntryFailed, decision.ResourceID, decision, err); jerr != nil {
			log.Warn().Err(jerr).Msg("journal write failed after execution error")
		}
		return e.fail(result, "execution failed", err)
	}

	result.Status = StatusSuccess
	result.ResourceID = resourceID
	if err := e.journal.Append(journal.EntryApplied, resourceID, decision); err != nil {
		// The change landed; losing the journal line is not a failure.
		log.Warn().Err(err).Msg("execution succeeded but journal write failed")
	}
	return e.finish(result)
}

// dispatch routes the decision to the provider operation.
func (e *Engine) dispatch(ctx context.Context, d types.Decision, desired types.DesiredState) (string, error) {
	switch d.ResourceType {
	case types.ResourceSecurityGroup:
		return e.dispatchGroup(ctx, d)
	case types.ResourceInstance:
		return e.dispatchInstance(ctx, d, desired)
	default:
		return "", fmt.Errorf("unknown resource type %q", d.ResourceType)
	}
}

func (e *Engine) dispatchGroup(ctx context.Context, d types.Decision) (string, error) {
	switch d.Action {
	case types.ActionCreate:
		id, err := e.provider.CreateSecurityGroup(ctx, *d.Group)
		if err != nil {
			return "", err
		}
		e.groupID = id
		return id, nil

	case types.ActionUpdate:
		if err := e.provider.AuthorizeIngress(ctx, d.ResourceID, d.AddRules); err != nil {
			return "", err
		}
		if err := e.provider.RevokeIngress(ctx, d.ResourceID, d.RemoveRules); err != nil {
			return "", err
		}
		e.groupID = d.ResourceID
		return d.ResourceID, nil

	case types.ActionReplace:
		id, err := e.replaceGroup(ctx, d)
		if err != nil {
			return "", err
		}
		e.groupID = id
		return id, nil

	case types.ActionDelete:
		return d.ResourceID, e.provider.DeleteSecurityGroup(ctx, d.ResourceID)

	default:
		return "", fmt.Errorf("unsupported group action %q", d.Action)
	}
}

func (e *Engine) dispatchInstance(ctx context.Context, d types.Decision, desired types.DesiredState) (string, error) {
	switch d.Action {
	case types.ActionCreate:
		groupID, err := e.activeGroupID(ctx, desired)
		if err != nil {
			return "", err
		}
		return e.provider.RunInstance(ctx, *d.Instance, groupID)

	case types.ActionUpdate:
		return d.ResourceID, e.provider.ModifyInstanceType(ctx, d.ResourceID, d.Instance.InstanceType)

	case types.ActionReplace:
		// Create the replacement first, terminate the old instance after.
		groupID, err := e.activeGroupID(ctx, desired)
		if err != nil {
			return "", err
		}
		newID, err := e.provider.RunInstance(ctx, *d.Instance, groupID)
		if err != nil {
			return "", err
		}
		if err := e.provider.TerminateInstance(ctx, d.ResourceID); err != nil {
			return newID, err
		}
		return newID, nil

	case types.ActionDelete:
		return d.ResourceID, e.provider.TerminateInstance(ctx, d.ResourceID)

	default:
		return "", fmt.Errorf("unsupported instance action %q", d.Action)
	}
}

// activeGroupID returns the group instances attach to, observing the cloud
// when no group decision ran earlier in this apply.
func (e *Engine) activeGroupID(ctx context.Context, desired types.DesiredState) (string, error) {
	if e.groupID != "" {
		return e.groupID, nil
	}

	state, err := e.provider.Observe(ctx)
	if err != nil {
		return "", err
	}
	group := state.ActiveGroup(desired.Group.Name)
	if group == nil {
		return "", &types.MissingReferenceError{Kind: "security group", Ref: desired.Group.Name}
	}
	e.groupID = group.ID
	return group.ID, nil
}

func (e *Engine) fail(result DecisionResult, context string, err error) DecisionResult {
	result.Status = StatusFailed
	result.Error = fmt.Sprintf("%s: %v", context, err)
	return e.finish(result)
}

func (e *Engine) finish(result DecisionResult) DecisionResult {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}
