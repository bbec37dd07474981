package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/types"
)

// RunInstance launches one instance for a role, attached to the group, in
// the default subnet for the configured availability zone.
func (p *Provider) RunInstance(ctx context.Context, spec types.InstanceSpec, groupID string) (string, error) {
	subnetID, err := p.defaultSubnet(ctx, spec.AvailabilityZone)
	if err != nil {
		return "", err
	}

	out, err := p.client.RunInstances(ctx, &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.ImageID),
		InstanceType: ec2types.InstanceType(spec.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		KeyName:      aws.String(spec.KeyName),
		NetworkInterfaces: []ec2types.InstanceNetworkInterfaceSpecification{
			{
				AssociatePublicIpAddress: aws.Bool(true),
				DeleteOnTermination:      aws.Bool(true),
				DeviceIndex:              aws.Int32(0),
				Groups:                   []string{groupID},
				SubnetId:                 aws.String(subnetID),
			},
		},
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeInstance,
				Tags:         tagsToEC2(spec.Tags),
			},
		},
	})
	if err != nil {
		return "", wrapProvider("RunInstances", err)
	}
	if len(out.Instances) == 0 {
		return "", wrapProvider("RunInstances", errNoInstanceReturned)
	}

	id := aws.ToString(out.Instances[0].InstanceId)
	log.Info().Str("instance_id", id).Str("role", spec.Role).Msg("instance launched")
	return id, nil
}

// TerminateInstance terminates one instance.
func (p *Provider) TerminateInstance(ctx context.Context, instanceID string) error {
	_, err := p.client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return wrapProvider("TerminateInstances", err)
	}
	log.Info().Str("instance_id", instanceID).Msg("instance terminated")
	return nil
}

// ModifyInstanceType applies an in-place instance type change.
func (p *Provider) ModifyInstanceType(ctx context.Context, instanceID, instanceType string) error {
	_, err := p.client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(instanceID),
		InstanceType: &ec2types.AttributeValue{
			Value: aws.String(instanceType),
		},
	})
	if err != nil {
		return wrapProvider("ModifyInstanceAttribute", err)
	}
	log.Info().Str("instance_id", instanceID).Str("instance_type", instanceType).Msg("instance type modified")
	return nil
}

// AttachSecurityGroup points the instance's group membership at exactly the
// given group. Used mid-rename to swap the old group for the new one.
func (p *Provider) AttachSecurityGroup(ctx context.Context, instanceID, groupID string) error {
	_, err := p.client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(instanceID),
		Groups:     []string{groupID},
	})
	if err != nil {
		return wrapProvider("ModifyInstanceAttribute", err)
	}
	log.Info().Str("instance_id", instanceID).Str("group_id", groupID).Msg("security group attached")
	return nil
}
