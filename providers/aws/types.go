package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/varusta/types"
)

// EC2API is the slice of the EC2 client the provider uses.
// Tests substitute a mock.
type EC2API interface {
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	CreateSecurityGroup(ctx context.Context, params *ec2.CreateSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupIngress(ctx context.Context, params *ec2.RevokeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error)
	DeleteSecurityGroup(ctx context.Context, params *ec2.DeleteSecurityGroupInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	ModifyInstanceAttribute(ctx context.Context, params *ec2.ModifyInstanceAttributeInput, optFns ...func(*ec2.Options)) (*ec2.ModifyInstanceAttributeOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeImages(ctx context.Context, params *ec2.DescribeImagesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error)
	DescribeKeyPairs(ctx context.Context, params *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
}

// tagsToEC2 converts structured tags to the wire form.
func tagsToEC2(t types.Tags) []ec2types.Tag {
	var out []ec2types.Tag
	for key, value := range t.ToMap() {
		k, v := key, value
		out = append(out, ec2types.Tag{Key: &k, Value: &v})
	}
	return out
}

// tagsFromEC2 converts wire tags to the structured form.
func tagsFromEC2(tags []ec2types.Tag) types.Tags {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		if t.Key != nil && t.Value != nil {
			m[*t.Key] = *t.Value
		}
	}
	return types.TagsFromMap(m)
}

// ingressFromEC2 flattens IP permissions into single-port rules. Port ranges
// wider than one port and non-CIDR sources are outside the model and skipped.
func ingressFromEC2(perms []ec2types.IpPermission) []types.IngressRule {
	var rules []types.IngressRule
	for _, perm := range perms {
		if perm.FromPort == nil || perm.ToPort == nil || perm.IpProtocol == nil {
			continue
		}
		if *perm.FromPort != *perm.ToPort {
			continue
		}
		for _, r := range perm.IpRanges {
			if r.CidrIp == nil {
				continue
			}
			rules = append(rules, types.IngressRule{
				Port:       int(*perm.FromPort),
				Protocol:   *perm.IpProtocol,
				SourceCIDR: *r.CidrIp,
			})
		}
	}
	return rules
}

// ingressToEC2 converts rules to IP permissions, one permission per rule.
func ingressToEC2(rules []types.IngressRule) []ec2types.IpPermission {
	perms := make([]ec2types.IpPermission, 0, len(rules))
	for _, rule := range rules {
		port := int32(rule.Port) // #nosec G115 -- validated to [1,65535]
		proto := rule.Protocol
		cidr := rule.SourceCIDR
		perms = append(perms, ec2types.IpPermission{
			FromPort:   &port,
			ToPort:     &port,
			IpProtocol: &proto,
			IpRanges:   []ec2types.IpRange{{CidrIp: &cidr}},
		})
	}
	return perms
}
