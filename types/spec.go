package types

import "time"

// IngressRule is one inbound permission on a security group.
type IngressRule struct {
	Port       int    `json:"port" yaml:"port"`
	Protocol   string `json:"protocol" yaml:"protocol"`
	SourceCIDR string `json:"source_cidr" yaml:"source_cidr"`
}

// SecurityGroupSpec is the desired security group shared by all role instances.
// Identity key is Name; changing Name is a replacement at the provider level.
type SecurityGroupSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Ingress     []IngressRule `json:"ingress"`
	Tags        Tags          `json:"tags"`
}

// SecurityGroupState is a security group as observed in the cloud.
type SecurityGroupState struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	VPCID   string        `json:"vpc_id"`
	Ingress []IngressRule `json:"ingress"`
	Tags    Tags          `json:"tags"`
}

// InstanceSpec is the desired instance for one role. Shape is uniform across
// roles; only the role tags differ.
type InstanceSpec struct {
	Role             string `json:"role"`
	ImageID          string `json:"image_id"`
	InstanceType     string `json:"instance_type"`
	AvailabilityZone string `json:"availability_zone"`
	KeyName          string `json:"key_name"`
	Tags             Tags   `json:"tags"`
}

// InstanceState is an EC2 instance as observed in the cloud.
type InstanceState struct {
	ID               string    `json:"id"`
	Role             string    `json:"role"`
	ImageID          string    `json:"image_id"`
	InstanceType     string    `json:"instance_type"`
	AvailabilityZone string    `json:"availability_zone"`
	KeyName          string    `json:"key_name"`
	SubnetID         string    `json:"subnet_id"`
	GroupIDs         []string  `json:"group_ids"`
	PublicIP         string    `json:"public_ip,omitempty"`
	State            string    `json:"state"`
	Tags             Tags      `json:"tags"`
	LaunchTime       time.Time `json:"launch_time"`
}

// DesiredState is the full rendered configuration: one security group plus
// one instance per role.
type DesiredState struct {
	Group     SecurityGroupSpec `json:"group"`
	Instances []InstanceSpec    `json:"instances"`
}

// CloudState is everything varusta-managed that currently exists.
// Groups may hold more than one entry mid-rename.
type CloudState struct {
	Groups    []SecurityGroupState `json:"groups"`
	Instances []InstanceState      `json:"instances"`
}

// ActiveGroup returns the managed group matching name, or nil.
func (s *CloudState) ActiveGroup(name string) *SecurityGroupState {
	for i := range s.Groups {
		if s.Groups[i].Name == name {
			return &s.Groups[i]
		}
	}
	return nil
}

// StaleGroups returns managed groups whose name differs from the desired one.
func (s *CloudState) StaleGroups(name string) []SecurityGroupState {
	var stale []SecurityGroupState
	for _, g := range s.Groups {
		if g.Name != name {
			stale = append(stale, g)
		}
	}
	return stale
}

// InstanceByRole returns the observed instance for a role, or nil.
func (s *CloudState) InstanceByRole(role string) *InstanceState {
	for i := range s.Instances {
		if s.Instances[i].Role == role {
			return &s.Instances[i]
		}
	}
	return nil
}

// Outputs are the operator-facing projections of an applied configuration.
type Outputs struct {
	ServerIPs         map[string]string `json:"server_ips"`
	SecurityGroupName string            `json:"security_group_name"`
}
