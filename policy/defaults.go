package policy

// Built-in policies shipped with the binary. Operators can layer their
// own modules on top with LoadPolicy.
var defaultPolicies = map[string]string{
	"open_ingress.rego": openIngressPolicy,
	"destructive.rego":  destructivePolicy,
	"tagging.rego":      taggingPolicy,
}

// openIngressPolicy flags rules reachable from the whole internet.
const openIngressPolicy = `package varusta

warnings contains w if {
	some rule in input.group.ingress
	rule.source_cidr == "0.0.0.0/0"
	w := {
		"severity": "medium",
		"reason": sprintf("port %d is open to 0.0.0.0/0", [rule.port]),
	}
}
`

// destructivePolicy surfaces deletes and replacements so they are never
// buried in a long plan.
const destructivePolicy = `package varusta

warnings contains w if {
	some d in input.decisions
	d.action == "delete"
	w := {
		"severity": "high",
		"reason": sprintf("%s %s will be deleted", [d.resource_type, d.resource_id]),
	}
}

warnings contains w if {
	some d in input.decisions
	d.action == "replace"
	w := {
		"severity": "medium",
		"reason": sprintf("%s %s will be replaced", [d.resource_type, d.resource_id]),
	}
}
`

// taggingPolicy checks the group carries the tags discovery depends on.
const taggingPolicy = `package varusta

warnings contains w if {
	not input.group.tags.name
	w := {
		"severity": "low",
		"reason": "security group has no Name tag",
	}
}

warnings contains w if {
	not input.group.tags.managed
	w := {
		"severity": "high",
		"reason": "security group is missing the managed tag, future runs will not find it",
	}
}
`
