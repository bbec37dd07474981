package desired

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/varusta/config"
	"github.com/yairfalse/varusta/rolemap"
)

func testConfig() *config.Config {
	return &config.Config{
		Region:           "us-east-1",
		AvailabilityZone: "us-east-1a",
		InstanceType:     "t3.micro",
		AMIID:            "ami-0abcdef1234567890",
		KeyName:          "deploy-key",
		SourceCIDR:       "0.0.0.0/0",
		SecurityGroup:    config.SecurityGroup{Name: "web-servers", Description: "web tier"},
		ServerRoles: map[string][]int{
			"app-server":   {22, 80},
			"db-server":    {22, 3306},
			"proxy-server": {22, 8080},
		},
	}
}

func TestBuildOneInstancePerRole(t *testing.T) {
	state := Build(testConfig())

	require.Len(t, state.Instances, 3, "N roles must produce exactly N instances")

	byRole := map[string]bool{}
	for _, inst := range state.Instances {
		byRole[inst.Role] = true
		assert.Equal(t, inst.Role, inst.Tags.Name, "Name tag must match role")
		assert.Equal(t, inst.Role, inst.Tags.Role, "Role tag must match role")
		assert.True(t, inst.Tags.Managed)
		assert.Equal(t, "t3.micro", inst.InstanceType)
		assert.Equal(t, "ami-0abcdef1234567890", inst.ImageID)
		assert.Equal(t, "us-east-1a", inst.AvailabilityZone)
		assert.Equal(t, "deploy-key", inst.KeyName)
	}
	assert.Len(t, byRole, 3, "every role key produces its own instance")
}

func TestBuildGroupIngress(t *testing.T) {
	state := Build(testConfig())

	assert.Equal(t, "web-servers", state.Group.Name)
	assert.True(t, state.Group.Tags.Managed)
	assert.Equal(t, []int{22, 80, 3306, 8080}, rolemap.Ports(state.Group.Ingress),
		"shared port 22 must be deduplicated")
}

func TestBuildDeterministicOrder(t *testing.T) {
	a := Build(testConfig())
	b := Build(testConfig())

	assert.Equal(t, a, b, "rendering must be deterministic")
	assert.Equal(t, "app-server", a.Instances[0].Role)
	assert.Equal(t, "db-server", a.Instances[1].Role)
	assert.Equal(t, "proxy-server", a.Instances[2].Role)
}
