package planner

import (
	"time"

	"github.com/yairfalse/varusta/types"
)

// Destroy plans removal of everything managed: instances first, groups last,
// the reverse of the create dependency order.
func (p *Planner) Destroy(observed types.CloudState) *Plan {
	plan := &Plan{CreatedAt: time.Now()}

	for _, inst := range observed.Instances {
		plan.Decisions = append(plan.Decisions, types.Decision{
			Action:       types.ActionDelete,
			ResourceType: types.ResourceInstance,
			ResourceID:   inst.ID,
			Role:         inst.Role,
			Reason:       "destroy requested",
			CreatedAt:    time.Now(),
		})
	}
	for _, g := range observed.Groups {
		plan.Decisions = append(plan.Decisions, types.Decision{
			Action:       types.ActionDelete,
			ResourceType: types.ResourceSecurityGroup,
			ResourceID:   g.ID,
			Reason:       "destroy requested",
			CreatedAt:    time.Now(),
		})
	}

	return plan
}
