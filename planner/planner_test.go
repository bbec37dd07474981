package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/varusta/types"
)

func desiredFixture() types.DesiredState {
	return types.DesiredState{
		Group: types.SecurityGroupSpec{
			Name:        "web-servers",
			Description: "web tier",
			Ingress: []types.IngressRule{
				{Port: 22, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"},
				{Port: 80, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"},
			},
			Tags: types.Tags{Name: "web-servers", Managed: true},
		},
		Instances: []types.InstanceSpec{
			{
				Role:             "app-server",
				ImageID:          "ami-111",
				InstanceType:     "t3.micro",
				AvailabilityZone: "us-east-1a",
				KeyName:          "deploy-key",
				Tags:             types.RoleTags("app-server"),
			},
			{
				Role:             "db-server",
				ImageID:          "ami-111",
				InstanceType:     "t3.micro",
				AvailabilityZone: "us-east-1a",
				KeyName:          "deploy-key",
				Tags:             types.RoleTags("db-server"),
			},
		},
	}
}

func observedInSync() types.CloudState {
	return types.CloudState{
		Groups: []types.SecurityGroupState{
			{
				ID:   "sg-active",
				Name: "web-servers",
				Ingress: []types.IngressRule{
					{Port: 22, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"},
					{Port: 80, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"},
				},
				Tags: types.Tags{Name: "web-servers", Managed: true},
			},
		},
		Instances: []types.InstanceState{
			{
				ID: "i-app", Role: "app-server", ImageID: "ami-111",
				InstanceType: "t3.micro", AvailabilityZone: "us-east-1a",
				KeyName: "deploy-key", GroupIDs: []string{"sg-active"},
			},
			{
				ID: "i-db", Role: "db-server", ImageID: "ami-111",
				InstanceType: "t3.micro", AvailabilityZone: "us-east-1a",
				KeyName: "deploy-key", GroupIDs: []string{"sg-active"},
			},
		},
	}
}

func TestPlanEmptyCloud(t *testing.T) {
	plan := New().Plan(desiredFixture(), types.CloudState{})

	require.Len(t, plan.Decisions, 3)

	assert.Equal(t, types.ResourceSecurityGroup, plan.Decisions[0].ResourceType,
		"group must be planned before instances")
	assert.Equal(t, types.ActionCreate, plan.Decisions[0].Action)

	assert.Equal(t, "app-server", plan.Decisions[1].Role)
	assert.Equal(t, "db-server", plan.Decisions[2].Role)
	for _, d := range plan.Decisions[1:] {
		assert.Equal(t, types.ActionCreate, d.Action)
		assert.Equal(t, types.ResourceInstance, d.ResourceType)
	}

	s := plan.Summarize()
	assert.Equal(t, Summary{Creates: 3}, s)
}

func TestPlanInSync(t *testing.T) {
	plan := New().Plan(desiredFixture(), observedInSync())

	assert.False(t, plan.HasChanges())
	assert.Empty(t, plan.Decisions)
}

func TestPlanInstanceTypeChangeIsInPlace(t *testing.T) {
	desired := desiredFixture()
	for i := range desired.Instances {
		desired.Instances[i].InstanceType = "t3.large"
	}

	plan := New().Plan(desired, observedInSync())

	require.Len(t, plan.Decisions, 2, "only the two instances change, nothing else")
	for _, d := range plan.Decisions {
		assert.Equal(t, types.ActionUpdate, d.Action)
		assert.Equal(t, types.ResourceInstance, d.ResourceType)
		assert.NotEmpty(t, d.ResourceID)
	}
}

func TestPlanAMIChangeIsReplacement(t *testing.T) {
	desired := desiredFixture()
	desired.Instances[0].ImageID = "ami-222"

	plan := New().Plan(desired, observedInSync())

	require.Len(t, plan.Decisions, 1)
	assert.Equal(t, types.ActionReplace, plan.Decisions[0].Action)
	assert.Equal(t, "i-app", plan.Decisions[0].ResourceID)
	assert.True(t, plan.Decisions[0].IsDestructive())
}

func TestPlanGroupRename(t *testing.T) {
	desired := desiredFixture()
	desired.Group.Name = "edge-servers"

	plan := New().Plan(desired, observedInSync())

	require.Len(t, plan.Decisions, 1)
	d := plan.Decisions[0]
	assert.Equal(t, types.ActionReplace, d.Action)
	assert.Equal(t, types.ResourceSecurityGroup, d.ResourceType)
	assert.Equal(t, "sg-active", d.ResourceID, "replace targets the old group")
	require.NotNil(t, d.Group)
	assert.Equal(t, "edge-servers", d.Group.Name)
}

func TestPlanRoleRemoved(t *testing.T) {
	desired := desiredFixture()
	desired.Instances = desired.Instances[:1] // drop db-server

	plan := New().Plan(desired, observedInSync())

	require.Len(t, plan.Decisions, 1)
	assert.Equal(t, types.ActionDelete, plan.Decisions[0].Action)
	assert.Equal(t, "i-db", plan.Decisions[0].ResourceID)
}

func TestPlanRoleAdded(t *testing.T) {
	desired := desiredFixture()
	desired.Instances = append(desired.Instances, types.InstanceSpec{
		Role:             "proxy-server",
		ImageID:          "ami-111",
		InstanceType:     "t3.micro",
		AvailabilityZone: "us-east-1a",
		KeyName:          "deploy-key",
		Tags:             types.RoleTags("proxy-server"),
	})
	desired.Group.Ingress = append(desired.Group.Ingress,
		types.IngressRule{Port: 8080, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"})

	plan := New().Plan(desired, observedInSync())

	require.Len(t, plan.Decisions, 2)

	group := plan.Decisions[0]
	assert.Equal(t, types.ActionUpdate, group.Action)
	assert.Equal(t, types.ResourceSecurityGroup, group.ResourceType)
	require.Len(t, group.AddRules, 1)
	assert.Equal(t, 8080, group.AddRules[0].Port)
	assert.Empty(t, group.RemoveRules)

	inst := plan.Decisions[1]
	assert.Equal(t, types.ActionCreate, inst.Action)
	assert.Equal(t, "proxy-server", inst.Role)
}

func TestDestroyOrder(t *testing.T) {
	plan := New().Destroy(observedInSync())

	require.Len(t, plan.Decisions, 3)
	assert.Equal(t, types.ResourceInstance, plan.Decisions[0].ResourceType,
		"instances must be destroyed before the group they reference")
	assert.Equal(t, types.ResourceInstance, plan.Decisions[1].ResourceType)
	assert.Equal(t, types.ResourceSecurityGroup, plan.Decisions[2].ResourceType)
	for _, d := range plan.Decisions {
		assert.Equal(t, types.ActionDelete, d.Action)
	}
}

func TestPlanInterruptedRenameSweep(t *testing.T) {
	observed := observedInSync()
	observed.Groups = append(observed.Groups, types.SecurityGroupState{
		ID: "sg-leftover", Name: "old-servers", Tags: types.Tags{Managed: true},
	})

	plan := New().Plan(desiredFixture(), observed)

	require.Len(t, plan.Decisions, 1)
	assert.Equal(t, types.ActionDelete, plan.Decisions[0].Action)
	assert.Equal(t, "sg-leftover", plan.Decisions[0].ResourceID)
}
