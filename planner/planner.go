// Package planner compares desired state against observed cloud state and
// produces the ordered decisions that reconcile them.
package planner

import (
	"time"

	"github.com/yairfalse/varusta/types"
)

// Planner builds plans from desired and observed state.
type Planner struct{}

// New creates a planner.
func New() *Planner {
	return &Planner{}
}

// Plan produces decisions in apply order: security group first, then
// instance creates/updates/replaces, then instance deletes, then leftover
// group deletes. Group deletion for a rename is folded into the replace
// decision itself so instances are never left without an attached group.
func (p *Planner) Plan(desired types.DesiredState, observed types.CloudState) *Plan {
	plan := &Plan{CreatedAt: time.Now()}

	plan.Decisions = append(plan.Decisions, p.planGroup(desired, observed)...)
	plan.Decisions = append(plan.Decisions, p.planInstances(desired, observed)...)
	plan.Decisions = append(plan.Decisions, p.planOrphanGroups(desired, observed)...)

	return plan
}

// planGroup decides what happens to the shared security group.
func (p *Planner) planGroup(desired types.DesiredState, observed types.CloudState) []types.Decision {
	spec := desired.Group
	active := observed.ActiveGroup(spec.Name)
	stale := observed.StaleGroups(spec.Name)

	if active == nil {
		if len(stale) == 0 {
			return []types.Decision{{
				Action:       types.ActionCreate,
				ResourceType: types.ResourceSecurityGroup,
				Reason:       "security group declared but not found in cloud",
				CreatedAt:    time.Now(),
				Group:        &spec,
			}}
		}
		// Rename: the old group is replaced. The executor creates the new
		// group, reattaches every dependent instance, then destroys the old
		// one, in that order.
		return []types.Decision{{
			Action:       types.ActionReplace,
			ResourceType: types.ResourceSecurityGroup,
			ResourceID:   stale[0].ID,
			Reason:       "security group name changed from " + stale[0].Name + " to " + spec.Name,
			CreatedAt:    time.Now(),
			Group:        &spec,
		}}
	}

	add, remove := diffIngress(active.Ingress, spec.Ingress)
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}
	return []types.Decision{{
		Action:       types.ActionUpdate,
		ResourceType: types.ResourceSecurityGroup,
		ResourceID:   active.ID,
		Reason:       "ingress rules differ from role map expansion",
		CreatedAt:    time.Now(),
		Group:        &spec,
		AddRules:     add,
		RemoveRules:  remove,
	}}
}

// planInstances walks desired roles in order, then sweeps removed roles.
func (p *Planner) planInstances(desired types.DesiredState, observed types.CloudState) []types.Decision {
	var decisions []types.Decision

	wanted := make(map[string]bool, len(desired.Instances))
	for i := range desired.Instances {
		spec := desired.Instances[i]
		wanted[spec.Role] = true

		current := observed.InstanceByRole(spec.Role)
		if current == nil {
			decisions = append(decisions, types.Decision{
				Action:       types.ActionCreate,
				ResourceType: types.ResourceInstance,
				Role:         spec.Role,
				Reason:       "role declared but no instance exists",
				CreatedAt:    time.Now(),
				Instance:     &spec,
			})
			continue
		}

		kind, reason := instanceDrift(*current, spec)
		switch kind {
		case driftInPlace:
			decisions = append(decisions, types.Decision{
				Action:       types.ActionUpdate,
				ResourceType: types.ResourceInstance,
				ResourceID:   current.ID,
				Role:         spec.Role,
				Reason:       reason,
				CreatedAt:    time.Now(),
				Instance:     &spec,
			})
		case driftReplace:
			decisions = append(decisions, types.Decision{
				Action:       types.ActionReplace,
				ResourceType: types.ResourceInstance,
				ResourceID:   current.ID,
				Role:         spec.Role,
				Reason:       reason,
				CreatedAt:    time.Now(),
				Instance:     &spec,
			})
		}
	}

	for _, current := range observed.Instances {
		if wanted[current.Role] {
			continue
		}
		decisions = append(decisions, types.Decision{
			Action:       types.ActionDelete,
			ResourceType: types.ResourceInstance,
			ResourceID:   current.ID,
			Role:         current.Role,
			Reason:       "role removed from config",
			CreatedAt:    time.Now(),
		})
	}

	return decisions
}

// planOrphanGroups sweeps managed groups left behind by an interrupted
// rename, beyond the one handled by the replace decision.
func (p *Planner) planOrphanGroups(desired types.DesiredState, observed types.CloudState) []types.Decision {
	stale := observed.StaleGroups(desired.Group.Name)
	if observed.ActiveGroup(desired.Group.Name) == nil && len(stale) > 0 {
		stale = stale[1:] // first one is the replace target
	}

	var decisions []types.Decision
	for _, g := range stale {
		decisions = append(decisions, types.Decision{
			Action:       types.ActionDelete,
			ResourceType: types.ResourceSecurityGroup,
			ResourceID:   g.ID,
			Reason:       "managed group " + g.Name + " no longer declared",
			CreatedAt:    time.Now(),
		})
	}
	return decisions
}
