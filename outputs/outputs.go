// Package outputs projects observed cloud state into the values callers
// consume after an apply: the public IP per role and the active group name.
package outputs

import (
	"sort"

	"github.com/yairfalse/varusta/types"
)

// Project builds the output view for a deployment. groupName is the
// configured group name; only the group currently carrying that name
// is reported, never a stale predecessor awaiting cleanup.
func Project(groupName string, observed types.CloudState) types.Outputs {
	out := types.Outputs{
		ServerIPs: make(map[string]string),
	}

	if group := observed.ActiveGroup(groupName); group != nil {
		out.SecurityGroupName = group.Name
	}

	for _, inst := range observed.Instances {
		if inst.Role == "" {
			continue
		}
		out.ServerIPs[inst.Role] = inst.PublicIP
	}
	return out
}

// Roles returns the output's role names in stable order for rendering.
func Roles(out types.Outputs) []string {
	roles := make([]string, 0, len(out.ServerIPs))
	for role := range out.ServerIPs {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
