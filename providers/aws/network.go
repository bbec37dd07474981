package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/varusta/types"
)

// defaultVPC looks up the account's default VPC in the region.
func (p *Provider) defaultVPC(ctx context.Context) (string, error) {
	out, err := p.client.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("is-default"), Values: []string{"true"}},
		},
	})
	if err != nil {
		return "", wrapProvider("DescribeVpcs", err)
	}
	if len(out.Vpcs) == 0 {
		return "", &types.MissingReferenceError{Kind: "vpc", Ref: "default vpc in " + p.region}
	}

	id := aws.ToString(out.Vpcs[0].VpcId)
	log.Debug().Str("vpc", id).Msg("resolved default vpc")
	return id, nil
}

// defaultSubnet looks up the default subnet for the availability zone.
func (p *Provider) defaultSubnet(ctx context.Context, az string) (string, error) {
	out, err := p.client.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("default-for-az"), Values: []string{"true"}},
			{Name: aws.String("availability-zone"), Values: []string{az}},
		},
	})
	if err != nil {
		return "", wrapProvider("DescribeSubnets", err)
	}
	if len(out.Subnets) == 0 {
		return "", &types.MissingReferenceError{Kind: "subnet", Ref: az}
	}

	id := aws.ToString(out.Subnets[0].SubnetId)
	log.Debug().Str("subnet", id).Str("az", az).Msg("resolved default subnet")
	return id, nil
}
