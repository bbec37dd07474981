package executor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/types"
)

// replaceGroup performs the rename sequence:
//
//	Stable(old) -> Creating(new) -> Both-attached -> Destroying(old) -> Stable(new)
//
// Every dependent instance is moved to the new group before the old one is
// destroyed. Detaching first would open a window with no attached group and
// cut connectivity, so the order here is load-bearing.
func (e *Engine) replaceGroup(ctx context.Context, d types.Decision) (string, error) {
	if d.Group == nil {
		return "", fmt.Errorf("group replace decision without desired spec")
	}
	oldID := d.ResourceID

	newID, err := e.provider.CreateSecurityGroup(ctx, *d.Group)
	if err != nil {
		return "", fmt.Errorf("create replacement group: %w", err)
	}

	state, err := e.provider.Observe(ctx)
	if err != nil {
		return newID, fmt.Errorf("observe dependents: %w", err)
	}

	for _, inst := range state.Instances {
		if !attachedTo(inst, oldID) {
			continue
		}
		if err := e.provider.AttachSecurityGroup(ctx, inst.ID, newID); err != nil {
			return newID, fmt.Errorf("reattach %s: %w", inst.ID, err)
		}
	}

	if err := e.provider.DeleteSecurityGroup(ctx, oldID); err != nil {
		return newID, fmt.Errorf("destroy old group: %w", err)
	}

	log.Info().
		Str("old_group", oldID).
		Str("new_group", newID).
		Str("name", d.Group.Name).
		Msg("security group replaced")

	return newID, nil
}

func attachedTo(inst types.InstanceState, groupID string) bool {
	for _, id := range inst.GroupIDs {
		if id == groupID {
			return true
		}
	}
	return false
}
