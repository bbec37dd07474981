// Package rolemap expands the role→ports mapping into ingress rules and a
// deterministic role ordering. The expansion is recomputed on every plan.
package rolemap

import (
	"sort"

	"github.com/yairfalse/varusta/types"
)

// Roles returns role names sorted for deterministic fan-out.
func Roles(roles map[string][]int) []string {
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandIngress flattens the role map into one tcp ingress rule per distinct
// port. Duplicate ports across roles collapse to one rule; output is sorted
// ascending by port so the result is independent of map iteration order.
func ExpandIngress(roles map[string][]int, sourceCIDR string) []types.IngressRule {
	seen := make(map[int]bool)
	var ports []int
	for _, rolePorts := range roles {
		for _, port := range rolePorts {
			if seen[port] {
				continue
			}
			seen[port] = true
			ports = append(ports, port)
		}
	}
	sort.Ints(ports)

	rules := make([]types.IngressRule, 0, len(ports))
	for _, port := range ports {
		rules = append(rules, types.IngressRule{
			Port:       port,
			Protocol:   "tcp",
			SourceCIDR: sourceCIDR,
		})
	}
	return rules
}

// Ports extracts the sorted distinct port set from a rule list.
func Ports(rules []types.IngressRule) []int {
	ports := make([]int, 0, len(rules))
	for _, r := range rules {
		ports = append(ports, r.Port)
	}
	sort.Ints(ports)
	return ports
}
