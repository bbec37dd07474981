package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/yairfalse/varusta/types"
)

// ResolveReferences verifies every external reference the desired state
// depends on: AMI, key pair, default VPC and the zone's default subnet.
// Failures are MissingReferenceError so the operator sees exactly which
// lookup came up empty. Nothing is retried.
func (p *Provider) ResolveReferences(ctx context.Context, state types.DesiredState) error {
	if len(state.Instances) == 0 {
		return nil
	}
	// Shape is uniform across roles, one lookup each suffices.
	spec := state.Instances[0]

	if err := p.resolveImage(ctx, spec.ImageID); err != nil {
		return err
	}
	if err := p.resolveKeyPair(ctx, spec.KeyName); err != nil {
		return err
	}
	if _, err := p.defaultVPC(ctx); err != nil {
		return err
	}
	if _, err := p.defaultSubnet(ctx, spec.AvailabilityZone); err != nil {
		return err
	}
	return nil
}

func (p *Provider) resolveImage(ctx context.Context, imageID string) error {
	out, err := p.client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{imageID},
	})
	if err != nil {
		if isNotFound(err) {
			return &types.MissingReferenceError{Kind: "ami", Ref: imageID}
		}
		return wrapProvider("DescribeImages", err)
	}
	if len(out.Images) == 0 {
		return &types.MissingReferenceError{Kind: "ami", Ref: imageID}
	}
	return nil
}

func (p *Provider) resolveKeyPair(ctx context.Context, keyName string) error {
	out, err := p.client.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames: []string{keyName},
	})
	if err != nil {
		if isNotFound(err) {
			return &types.MissingReferenceError{Kind: "key pair", Ref: keyName}
		}
		return wrapProvider("DescribeKeyPairs", err)
	}
	if len(out.KeyPairs) == 0 {
		return &types.MissingReferenceError{Kind: "key pair", Ref: keyName}
	}
	return nil
}
