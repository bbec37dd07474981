package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/varusta/internal/telemetry"
	"github.com/yairfalse/varusta/journal"
	"github.com/yairfalse/varusta/planner"
	"github.com/yairfalse/varusta/types"
)

// fakeProvider records provider calls in order and simulates a small cloud.
type fakeProvider struct {
	calls []string
	state types.CloudState

	nextGroupID    int
	nextInstanceID int
	failOn         string // operation name that should fail
}

func (f *fakeProvider) Name() string   { return "fake" }
func (f *fakeProvider) Region() string { return "us-east-1" }

func (f *fakeProvider) fail(op string) error {
	if f.failOn == op {
		return errors.New(op + " rejected")
	}
	return nil
}

func (f *fakeProvider) Observe(ctx context.Context) (*types.CloudState, error) {
	f.calls = append(f.calls, "Observe")
	state := f.state
	return &state, nil
}

func (f *fakeProvider) CreateSecurityGroup(ctx context.Context, spec types.SecurityGroupSpec) (string, error) {
	f.nextGroupID++
	id := fmt.Sprintf("sg-%d", f.nextGroupID)
	f.calls = append(f.calls, "CreateSecurityGroup:"+spec.Name)
	if err := f.fail("CreateSecurityGroup"); err != nil {
		return "", err
	}
	f.state.Groups = append(f.state.Groups, types.SecurityGroupState{
		ID: id, Name: spec.Name, Ingress: spec.Ingress, Tags: spec.Tags,
	})
	return id, nil
}

func (f *fakeProvider) AuthorizeIngress(ctx context.Context, groupID string, rules []types.IngressRule) error {
	if len(rules) > 0 {
		f.calls = append(f.calls, fmt.Sprintf("AuthorizeIngress:%s:%d", groupID, len(rules)))
	}
	return f.fail("AuthorizeIngress")
}

func (f *fakeProvider) RevokeIngress(ctx context.Context, groupID string, rules []types.IngressRule) error {
	if len(rules) > 0 {
		f.calls = append(f.calls, fmt.Sprintf("RevokeIngress:%s:%d", groupID, len(rules)))
	}
	return f.fail("RevokeIngress")
}

func (f *fakeProvider) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	f.calls = append(f.calls, "DeleteSecurityGroup:"+groupID)
	if err := f.fail("DeleteSecurityGroup"); err != nil {
		return err
	}
	var kept []types.SecurityGroupState
	for _, g := range f.state.Groups {
		if g.ID != groupID {
			kept = append(kept, g)
		}
	}
	f.state.Groups = kept
	return nil
}

func (f *fakeProvider) RunInstance(ctx context.Context, spec types.InstanceSpec, groupID string) (string, error) {
	f.nextInstanceID++
	id := fmt.Sprintf("i-%d", f.nextInstanceID)
	f.calls = append(f.calls, fmt.Sprintf("RunInstance:%s:%s", spec.Role, groupID))
	if err := f.fail("RunInstance"); err != nil {
		return "", err
	}
	f.state.Instances = append(f.state.Instances, types.InstanceState{
		ID: id, Role: spec.Role, GroupIDs: []string{groupID},
		ImageID: spec.ImageID, InstanceType: spec.InstanceType,
		AvailabilityZone: spec.AvailabilityZone, KeyName: spec.KeyName,
		Tags: spec.Tags, State: "running", LaunchTime: time.Now(),
	})
	return id, nil
}

func (f *fakeProvider) TerminateInstance(ctx context.Context, instanceID string) error {
	f.calls = append(f.calls, "TerminateInstance:"+instanceID)
	if err := f.fail("TerminateInstance"); err != nil {
		return err
	}
	var kept []types.InstanceState
	for _, inst := range f.state.Instances {
		if inst.ID != instanceID {
			kept = append(kept, inst)
		}
	}
	f.state.Instances = kept
	return nil
}

func (f *fakeProvider) ModifyInstanceType(ctx context.Context, instanceID, instanceType string) error {
	f.calls = append(f.calls, fmt.Sprintf("ModifyInstanceType:%s:%s", instanceID, instanceType))
	return f.fail("ModifyInstanceType")
}

func (f *fakeProvider) AttachSecurityGroup(ctx context.Context, instanceID, groupID string) error {
	f.calls = append(f.calls, fmt.Sprintf("AttachSecurityGroup:%s:%s", instanceID, groupID))
	if err := f.fail("AttachSecurityGroup"); err != nil {
		return err
	}
	for i := range f.state.Instances {
		if f.state.Instances[i].ID == instanceID {
			f.state.Instances[i].GroupIDs = []string{groupID}
		}
	}
	return nil
}

func (f *fakeProvider) ResolveReferences(ctx context.Context, state types.DesiredState) error {
	f.calls = append(f.calls, "ResolveReferences")
	return f.fail("ResolveReferences")
}

func newTestEngine(t *testing.T, provider *fakeProvider, options Options) *Engine {
	t.Helper()
	jrnl, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = jrnl.Close() })
	return NewEngine(provider, jrnl, options)
}

func desiredFixture() types.DesiredState {
	return types.DesiredState{
		Group: types.SecurityGroupSpec{
			Name: "web-servers",
			Ingress: []types.IngressRule{
				{Port: 22, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"},
			},
			Tags: types.Tags{Name: "web-servers", Managed: true},
		},
		Instances: []types.InstanceSpec{
			{Role: "app-server", ImageID: "ami-111", InstanceType: "t3.micro",
				AvailabilityZone: "us-east-1a", KeyName: "deploy-key", Tags: types.RoleTags("app-server")},
			{Role: "db-server", ImageID: "ami-111", InstanceType: "t3.micro",
				AvailabilityZone: "us-east-1a", KeyName: "deploy-key", Tags: types.RoleTags("db-server")},
		},
	}
}

func TestApplyFreshCloud(t *testing.T) {
	provider := &fakeProvider{}
	engine := newTestEngine(t, provider, Options{})
	desired := desiredFixture()

	plan := planner.New().Plan(desired, types.CloudState{})
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)

	assert.Equal(t, 3, result.SuccessfulCount)
	assert.Zero(t, result.FailedCount)
	assert.False(t, result.PartialFailure)

	// Group creation must precede every instance launch.
	require.GreaterOrEqual(t, len(provider.calls), 3)
	assert.Equal(t, "CreateSecurityGroup:web-servers", provider.calls[0])
	assert.Contains(t, provider.calls, "RunInstance:app-server:sg-1")
	assert.Contains(t, provider.calls, "RunInstance:db-server:sg-1")
}

func TestApplyGroupRenameSequencing(t *testing.T) {
	provider := &fakeProvider{
		nextGroupID: 10, // existing group is sg-old below, counter avoids collision
		state: types.CloudState{
			Groups: []types.SecurityGroupState{
				{ID: "sg-old", Name: "web-servers", Tags: types.Tags{Managed: true}},
			},
			Instances: []types.InstanceState{
				{ID: "i-app", Role: "app-server", GroupIDs: []string{"sg-old"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
				{ID: "i-db", Role: "db-server", GroupIDs: []string{"sg-old"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
			},
		},
	}
	engine := newTestEngine(t, provider, Options{})

	desired := desiredFixture()
	desired.Group.Name = "edge-servers"

	plan := planner.New().Plan(desired, provider.state)
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)
	require.Zero(t, result.FailedCount)

	// Create new, reattach both instances, and only then delete the old group.
	var createIdx, deleteIdx, lastAttachIdx int
	attaches := 0
	for i, call := range provider.calls {
		switch {
		case call == "CreateSecurityGroup:edge-servers":
			createIdx = i
		case call == "DeleteSecurityGroup:sg-old":
			deleteIdx = i
		case call == "AttachSecurityGroup:i-app:sg-11" || call == "AttachSecurityGroup:i-db:sg-11":
			attaches++
			lastAttachIdx = i
		}
	}
	assert.Equal(t, 2, attaches, "every dependent instance must be reattached")
	assert.Less(t, createIdx, lastAttachIdx, "create before attach")
	assert.Less(t, lastAttachIdx, deleteIdx, "all attaches before destroying the old group")

	// Post-apply, instances reference the new identity only.
	for _, inst := range provider.state.Instances {
		assert.Equal(t, []string{"sg-11"}, inst.GroupIDs)
	}
}

func TestApplyInstanceTypeUpdateInPlace(t *testing.T) {
	provider := &fakeProvider{
		state: types.CloudState{
			Groups: []types.SecurityGroupState{
				{ID: "sg-1", Name: "web-servers",
					Ingress: []types.IngressRule{{Port: 22, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"}},
					Tags:    types.Tags{Managed: true}},
			},
			Instances: []types.InstanceState{
				{ID: "i-app", Role: "app-server", GroupIDs: []string{"sg-1"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
				{ID: "i-db", Role: "db-server", GroupIDs: []string{"sg-1"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
			},
		},
	}
	engine := newTestEngine(t, provider, Options{})

	desired := desiredFixture()
	for i := range desired.Instances {
		desired.Instances[i].InstanceType = "t3.large"
	}

	plan := planner.New().Plan(desired, provider.state)
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessfulCount)

	assert.Contains(t, provider.calls, "ModifyInstanceType:i-app:t3.large")
	assert.Contains(t, provider.calls, "ModifyInstanceType:i-db:t3.large")
	for _, call := range provider.calls {
		assert.NotContains(t, call, "TerminateInstance", "in-place update must not replace")
		assert.NotContains(t, call, "RunInstance", "in-place update must not create")
	}
}

func TestApplyReplaceCreatesBeforeTerminate(t *testing.T) {
	provider := &fakeProvider{
		state: types.CloudState{
			Groups: []types.SecurityGroupState{
				{ID: "sg-1", Name: "web-servers",
					Ingress: []types.IngressRule{{Port: 22, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"}},
					Tags:    types.Tags{Managed: true}},
			},
			Instances: []types.InstanceState{
				{ID: "i-old", Role: "app-server", GroupIDs: []string{"sg-1"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
			},
		},
	}
	engine := newTestEngine(t, provider, Options{})

	desired := desiredFixture()
	desired.Instances = desired.Instances[:1]
	desired.Instances[0].ImageID = "ami-222"

	plan := planner.New().Plan(desired, provider.state)
	_, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)

	runIdx, termIdx := -1, -1
	for i, call := range provider.calls {
		if call == "RunInstance:app-server:sg-1" {
			runIdx = i
		}
		if call == "TerminateInstance:i-old" {
			termIdx = i
		}
	}
	require.NotEqual(t, -1, runIdx)
	require.NotEqual(t, -1, termIdx)
	assert.Less(t, runIdx, termIdx, "replacement launches before the old instance terminates")
}

func TestApplyDryRunTouchesNothing(t *testing.T) {
	provider := &fakeProvider{}
	engine := newTestEngine(t, provider, Options{DryRun: true})
	desired := desiredFixture()

	plan := planner.New().Plan(desired, types.CloudState{})
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)

	assert.Equal(t, 3, result.SkippedCount)
	assert.Empty(t, provider.calls, "dry-run must not call the provider")
}

func TestApplyStopsOnFailure(t *testing.T) {
	provider := &fakeProvider{failOn: "CreateSecurityGroup"}
	engine := newTestEngine(t, provider, Options{})
	desired := desiredFixture()

	plan := planner.New().Plan(desired, types.CloudState{})
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	assert.True(t, result.PartialFailure)
	assert.Len(t, result.Results, 1, "stops at first failure without ContinueOnFailure")
}

func TestApplyContinueOnFailure(t *testing.T) {
	provider := &fakeProvider{
		failOn: "ModifyInstanceType",
		state: types.CloudState{
			Groups: []types.SecurityGroupState{
				{ID: "sg-1", Name: "web-servers",
					Ingress: []types.IngressRule{{Port: 22, Protocol: "tcp", SourceCIDR: "0.0.0.0/0"}},
					Tags:    types.Tags{Managed: true}},
			},
			Instances: []types.InstanceState{
				{ID: "i-app", Role: "app-server", GroupIDs: []string{"sg-1"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
				{ID: "i-db", Role: "db-server", GroupIDs: []string{"sg-1"},
					ImageID: "ami-111", InstanceType: "t3.micro",
					AvailabilityZone: "us-east-1a", KeyName: "deploy-key"},
			},
		},
	}
	engine := newTestEngine(t, provider, Options{ContinueOnFailure: true})

	desired := desiredFixture()
	for i := range desired.Instances {
		desired.Instances[i].InstanceType = "t3.large"
	}

	plan := planner.New().Plan(desired, provider.state)
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)

	assert.Equal(t, 2, result.FailedCount)
	assert.Len(t, result.Results, 2, "keeps going past failures")
}

func TestApplyMovesFailureCounter(t *testing.T) {
	shutdown, err := telemetry.Init(telemetry.Config{ServiceName: "varusta-test"})
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	// Group create succeeds, both instance launches fail.
	provider := &fakeProvider{failOn: "RunInstance"}
	engine := newTestEngine(t, provider, Options{ContinueOnFailure: true})
	desired := desiredFixture()

	plan := planner.New().Plan(desired, types.CloudState{})
	result, err := engine.Apply(context.Background(), plan, desired)
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessfulCount)
	require.Equal(t, 2, result.FailedCount)

	families, err := telemetry.PrometheusRegistry.Gather()
	require.NoError(t, err)

	sums := map[string]float64{}
	for _, fam := range families {
		for _, m := range fam.Metric {
			if m.GetCounter() != nil {
				sums[fam.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	failures, applied := 0.0, 0.0
	for name, value := range sums {
		if strings.Contains(name, "varusta_apply_failures") {
			failures = value
		}
		if strings.Contains(name, "varusta_decisions_applied") {
			applied = value
		}
	}
	assert.Equal(t, 2.0, failures, "each failed decision must move the failure counter")
	assert.Equal(t, 1.0, applied, "the successful group create must be counted")
}

func TestDestroy(t *testing.T) {
	provider := &fakeProvider{
		state: types.CloudState{
			Groups: []types.SecurityGroupState{
				{ID: "sg-1", Name: "web-servers", Tags: types.Tags{Managed: true}},
			},
			Instances: []types.InstanceState{
				{ID: "i-app", Role: "app-server", GroupIDs: []string{"sg-1"}},
			},
		},
	}
	engine := newTestEngine(t, provider, Options{})

	plan := planner.New().Destroy(provider.state)
	result, err := engine.Apply(context.Background(), plan, types.DesiredState{})
	require.NoError(t, err)
	require.Zero(t, result.FailedCount)

	require.Len(t, provider.calls, 2)
	assert.Equal(t, "TerminateInstance:i-app", provider.calls[0])
	assert.Equal(t, "DeleteSecurityGroup:sg-1", provider.calls[1])
	assert.Empty(t, provider.state.Groups)
	assert.Empty(t, provider.state.Instances)
}
