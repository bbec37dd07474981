package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/varusta/types"
)

// Default ingress source when none is configured. Wide open is a documented
// trade-off; the policy checks flag it at plan time.
const DefaultSourceCIDR = "0.0.0.0/0"

// SecurityGroup names the shared group. Name is the group's identity key;
// renaming it triggers a full replacement.
type SecurityGroup struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Config represents the main configuration
type Config struct {
	Region           string           `yaml:"region"`
	AvailabilityZone string           `yaml:"availability_zone"`
	InstanceType     string           `yaml:"instance_type"`
	AMIID            string           `yaml:"ami_id"`
	KeyName          string           `yaml:"key_name"`
	SourceCIDR       string           `yaml:"source_cidr,omitempty"`
	SecurityGroup    SecurityGroup    `yaml:"security_group"`
	ServerRoles      map[string][]int `yaml:"server_roles"`
}

// Load reads and validates configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.SourceCIDR == "" {
		cfg.SourceCIDR = DefaultSourceCIDR
	}
	if cfg.SecurityGroup.Description == "" {
		cfg.SecurityGroup.Description = "Security group for " + cfg.SecurityGroup.Name
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate ensures config has required fields and a well-formed role map
func (c *Config) Validate() error {
	if c.Region == "" {
		return &types.ValidationError{Field: "region", Reason: "is required"}
	}
	if c.AvailabilityZone == "" {
		return &types.ValidationError{Field: "availability_zone", Reason: "is required"}
	}
	if c.InstanceType == "" {
		return &types.ValidationError{Field: "instance_type", Reason: "is required"}
	}
	if c.AMIID == "" {
		return &types.ValidationError{Field: "ami_id", Reason: "is required"}
	}
	if c.KeyName == "" {
		return &types.ValidationError{Field: "key_name", Reason: "is required"}
	}
	if c.SecurityGroup.Name == "" {
		return &types.ValidationError{Field: "security_group.name", Reason: "is required"}
	}
	if len(c.ServerRoles) == 0 {
		return &types.ValidationError{Field: "server_roles", Reason: "at least one role is required"}
	}

	for role, ports := range c.ServerRoles {
		if role == "" {
			return &types.ValidationError{Field: "server_roles", Reason: "role name cannot be empty"}
		}
		if len(ports) == 0 {
			return &types.ValidationError{
				Field:  "server_roles." + role,
				Reason: "port list cannot be empty",
			}
		}
		for _, port := range ports {
			if port < 1 || port > 65535 {
				return &types.ValidationError{
					Field:  "server_roles." + role,
					Reason: fmt.Sprintf("port %d out of range [1,65535]", port),
				}
			}
		}
	}

	return nil
}
