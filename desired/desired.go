// Package desired renders configuration into the desired cloud state:
// one shared security group plus one uniform instance per role.
package desired

import (
	"github.com/yairfalse/varusta/config"
	"github.com/yairfalse/varusta/rolemap"
	"github.com/yairfalse/varusta/types"
)

// Build is a pure function of the configuration. There is no role-specific
// sizing or AMI selection; the shape is intentionally uniform.
func Build(cfg *config.Config) types.DesiredState {
	group := types.SecurityGroupSpec{
		Name:        cfg.SecurityGroup.Name,
		Description: cfg.SecurityGroup.Description,
		Ingress:     rolemap.ExpandIngress(cfg.ServerRoles, cfg.SourceCIDR),
		Tags: types.Tags{
			Name:    cfg.SecurityGroup.Name,
			Managed: true,
		},
	}

	roles := rolemap.Roles(cfg.ServerRoles)
	instances := make([]types.InstanceSpec, 0, len(roles))
	for _, role := range roles {
		instances = append(instances, types.InstanceSpec{
			Role:             role,
			ImageID:          cfg.AMIID,
			InstanceType:     cfg.InstanceType,
			AvailabilityZone: cfg.AvailabilityZone,
			KeyName:          cfg.KeyName,
			Tags:             types.RoleTags(role),
		})
	}

	return types.DesiredState{Group: group, Instances: instances}
}
