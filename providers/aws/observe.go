package aws

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/types"
)

var errNoInstanceReturned = errors.New("no instance returned")

// Observe reads every varusta-managed security group and instance. The cloud
// is the source of truth; nothing is read from local state here.
func (p *Provider) Observe(ctx context.Context) (*types.CloudState, error) {
	groups, err := p.observeGroups(ctx)
	if err != nil {
		return nil, err
	}
	instances, err := p.observeInstances(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int("groups", len(groups)).
		Int("instances", len(instances)).
		Msg("observed managed resources")

	return &types.CloudState{Groups: groups, Instances: instances}, nil
}

func (p *Provider) observeGroups(ctx context.Context) ([]types.SecurityGroupState, error) {
	out, err := p.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:" + types.TagManaged), Values: []string{"true"}},
		},
	})
	if err != nil {
		return nil, wrapProvider("DescribeSecurityGroups", err)
	}

	var groups []types.SecurityGroupState
	for _, sg := range out.SecurityGroups {
		groups = append(groups, types.SecurityGroupState{
			ID:      aws.ToString(sg.GroupId),
			Name:    aws.ToString(sg.GroupName),
			VPCID:   aws.ToString(sg.VpcId),
			Ingress: ingressFromEC2(sg.IpPermissions),
			Tags:    tagsFromEC2(sg.Tags),
		})
	}
	return groups, nil
}

func (p *Provider) observeInstances(ctx context.Context) ([]types.InstanceState, error) {
	out, err := p.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:" + types.TagManaged), Values: []string{"true"}},
			{Name: aws.String("instance-state-name"), Values: []string{
				"pending", "running", "stopping", "stopped",
			}},
		},
	})
	if err != nil {
		return nil, wrapProvider("DescribeInstances", err)
	}

	var instances []types.InstanceState
	for _, reservation := range out.Reservations {
		for _, inst := range reservation.Instances {
			instances = append(instances, convertInstance(inst))
		}
	}
	return instances, nil
}

func convertInstance(inst ec2types.Instance) types.InstanceState {
	tags := tagsFromEC2(inst.Tags)

	var az string
	if inst.Placement != nil {
		az = aws.ToString(inst.Placement.AvailabilityZone)
	}

	var groupIDs []string
	for _, g := range inst.SecurityGroups {
		groupIDs = append(groupIDs, aws.ToString(g.GroupId))
	}

	var stateName string
	if inst.State != nil {
		stateName = string(inst.State.Name)
	}

	state := types.InstanceState{
		ID:               aws.ToString(inst.InstanceId),
		Role:             tags.Role,
		ImageID:          aws.ToString(inst.ImageId),
		InstanceType:     string(inst.InstanceType),
		AvailabilityZone: az,
		KeyName:          aws.ToString(inst.KeyName),
		SubnetID:         aws.ToString(inst.SubnetId),
		GroupIDs:         groupIDs,
		PublicIP:         aws.ToString(inst.PublicIpAddress),
		State:            stateName,
		Tags:             tags,
	}
	if inst.LaunchTime != nil {
		state.LaunchTime = *inst.LaunchTime
	}
	return state
}
