package types

import (
	"fmt"
	"time"
)

// Action types
const (
	ActionCreate  = "create"  // resource does not exist yet
	ActionUpdate  = "update"  // in-place change (instance_type, ingress rules)
	ActionReplace = "replace" // destroy-then-recreate, new resource comes first
	ActionDelete  = "delete"  // resource no longer desired
	ActionNoop    = "noop"
)

// Resource types a decision can target.
const (
	ResourceSecurityGroup = "security_group"
	ResourceInstance      = "instance"
)

// Decision represents one action the executor should take.
// Exactly one of Group/Instance is set, matching ResourceType.
type Decision struct {
	Action       string             `json:"action"`
	ResourceType string             `json:"resource_type"`
	ResourceID   string             `json:"resource_id,omitempty"` // observed cloud ID, empty for create
	Role         string             `json:"role,omitempty"`
	Reason       string             `json:"reason"`
	CreatedAt    time.Time          `json:"created_at"`
	Group        *SecurityGroupSpec `json:"group,omitempty"`
	Instance     *InstanceSpec      `json:"instance,omitempty"`

	// In-place ingress edits for security group updates.
	AddRules    []IngressRule `json:"add_rules,omitempty"`
	RemoveRules []IngressRule `json:"remove_rules,omitempty"`
}

// Validate ensures the decision has required fields.
func (d *Decision) Validate() error {
	if d.Action == "" {
		return fmt.Errorf("decision action cannot be empty")
	}
	if d.ResourceType != ResourceSecurityGroup && d.ResourceType != ResourceInstance {
		return fmt.Errorf("unknown resource type %q", d.ResourceType)
	}
	// Create targets don't exist yet, everything else needs a cloud ID.
	if d.Action != ActionCreate && d.Action != ActionNoop && d.ResourceID == "" {
		return fmt.Errorf("decision resource ID cannot be empty for %s", d.Action)
	}
	if d.Reason == "" {
		return fmt.Errorf("decision reason cannot be empty")
	}
	return nil
}

// IsDestructive checks if the action removes a resource.
func (d *Decision) IsDestructive() bool {
	return d.Action == ActionDelete || d.Action == ActionReplace
}
