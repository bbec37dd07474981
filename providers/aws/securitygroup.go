package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/types"
)

// CreateSecurityGroup creates the group in the default VPC and authorizes
// its expanded ingress. Egress stays at the EC2 default (allow all).
func (p *Provider) CreateSecurityGroup(ctx context.Context, spec types.SecurityGroupSpec) (string, error) {
	vpcID, err := p.defaultVPC(ctx)
	if err != nil {
		return "", err
	}

	out, err := p.client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(spec.Name),
		Description: aws.String(spec.Description),
		VpcId:       aws.String(vpcID),
		TagSpecifications: []ec2types.TagSpecification{
			{
				ResourceType: ec2types.ResourceTypeSecurityGroup,
				Tags:         tagsToEC2(spec.Tags),
			},
		},
	})
	if err != nil {
		return "", wrapProvider("CreateSecurityGroup", err)
	}

	groupID := aws.ToString(out.GroupId)
	log.Info().Str("group_id", groupID).Str("name", spec.Name).Msg("security group created")

	if err := p.AuthorizeIngress(ctx, groupID, spec.Ingress); err != nil {
		return groupID, err
	}
	return groupID, nil
}

// AuthorizeIngress opens the given rules on the group.
func (p *Provider) AuthorizeIngress(ctx context.Context, groupID string, rules []types.IngressRule) error {
	if len(rules) == 0 {
		return nil
	}
	_, err := p.client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: ingressToEC2(rules),
	})
	return wrapProvider("AuthorizeSecurityGroupIngress", err)
}

// RevokeIngress closes the given rules on the group.
func (p *Provider) RevokeIngress(ctx context.Context, groupID string, rules []types.IngressRule) error {
	if len(rules) == 0 {
		return nil
	}
	_, err := p.client.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: ingressToEC2(rules),
	})
	return wrapProvider("RevokeSecurityGroupIngress", err)
}

// DeleteSecurityGroup removes the group. All dependent instances must be
// detached first or EC2 rejects the call.
func (p *Provider) DeleteSecurityGroup(ctx context.Context, groupID string) error {
	_, err := p.client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: aws.String(groupID),
	})
	if err != nil {
		return wrapProvider("DeleteSecurityGroup", err)
	}
	log.Info().Str("group_id", groupID).Msg("security group deleted")
	return nil
}
