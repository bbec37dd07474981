// Package aws implements the EC2 provider for varusta.
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog/log"
)

// Provider implements providers.CloudProvider on EC2.
type Provider struct {
	client EC2API
	region string
}

// New creates a provider using the SDK's default credential chain.
func New(ctx context.Context, region string) (*Provider, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	log.Debug().Str("region", region).Msg("aws provider ready")

	return &Provider{
		client: ec2.NewFromConfig(awsCfg),
		region: region,
	}, nil
}

// NewWithClient creates a provider with an explicit client, for tests.
func NewWithClient(client EC2API, region string) *Provider {
	return &Provider{client: client, region: region}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "aws"
}

// Region returns the provider region.
func (p *Provider) Region() string {
	return p.region
}
