package providers

import (
	"context"

	"github.com/yairfalse/varusta/types"
)

// CloudProvider is the compute API boundary: observe managed resources,
// create/update/delete them, and resolve network/image/key references.
// AWS is the only implementation today.
type CloudProvider interface {
	// Observation
	Observe(ctx context.Context) (*types.CloudState, error)

	// Security groups
	CreateSecurityGroup(ctx context.Context, spec types.SecurityGroupSpec) (string, error)
	AuthorizeIngress(ctx context.Context, groupID string, rules []types.IngressRule) error
	RevokeIngress(ctx context.Context, groupID string, rules []types.IngressRule) error
	DeleteSecurityGroup(ctx context.Context, groupID string) error

	// Instances
	RunInstance(ctx context.Context, spec types.InstanceSpec, groupID string) (string, error)
	TerminateInstance(ctx context.Context, instanceID string) error
	ModifyInstanceType(ctx context.Context, instanceID, instanceType string) error
	AttachSecurityGroup(ctx context.Context, instanceID, groupID string) error

	// Reference checks, surfaced as MissingReferenceError when unresolved
	ResolveReferences(ctx context.Context, state types.DesiredState) error

	// Provider info
	Name() string
	Region() string
}
