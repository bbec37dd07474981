package planner

import (
	"fmt"

	"github.com/yairfalse/varusta/types"
)

// instanceDrift compares an observed instance with its desired spec.
// instance_type changes apply in place; image, zone and key pair changes
// trigger a replacement at the provider level.
func instanceDrift(current types.InstanceState, spec types.InstanceSpec) (driftKind, string) {
	if current.ImageID != spec.ImageID {
		return driftReplace, fmt.Sprintf("ami changed %s -> %s", current.ImageID, spec.ImageID)
	}
	if current.AvailabilityZone != spec.AvailabilityZone {
		return driftReplace, fmt.Sprintf("availability zone changed %s -> %s", current.AvailabilityZone, spec.AvailabilityZone)
	}
	if current.KeyName != spec.KeyName {
		return driftReplace, fmt.Sprintf("key pair changed %s -> %s", current.KeyName, spec.KeyName)
	}
	if current.InstanceType != spec.InstanceType {
		return driftInPlace, fmt.Sprintf("instance type changed %s -> %s", current.InstanceType, spec.InstanceType)
	}
	return driftNone, ""
}

// diffIngress computes the in-place rule edits turning current into desired.
func diffIngress(current, desired []types.IngressRule) (add, remove []types.IngressRule) {
	currentSet := ruleSet(current)
	desiredSet := ruleSet(desired)

	for _, rule := range desired {
		if !currentSet[ruleKey(rule)] {
			add = append(add, rule)
		}
	}
	for _, rule := range current {
		if !desiredSet[ruleKey(rule)] {
			remove = append(remove, rule)
		}
	}
	return add, remove
}

func ruleSet(rules []types.IngressRule) map[string]bool {
	set := make(map[string]bool, len(rules))
	for _, rule := range rules {
		set[ruleKey(rule)] = true
	}
	return set
}

func ruleKey(rule types.IngressRule) string {
	return fmt.Sprintf("%d/%s/%s", rule.Port, rule.Protocol, rule.SourceCIDR)
}
