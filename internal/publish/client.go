// Package publish uploads compiled manuscripts to S3 and reports project
// totals as CloudWatch metrics.
package publish

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// loadAWSConfig loads the AWS configuration with optional profile and region.
func loadAWSConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// Clients bundles the AWS service clients used for publishing.
type Clients struct {
	S3       *s3.Client
	Metrics  *cloudwatch.Client
	Identity *sts.Client
}

// NewClients builds service clients for the given profile and region.
func NewClients(ctx context.Context, profile, region string) (*Clients, error) {
	cfg, err := loadAWSConfig(ctx, profile, region)
	if err != nil {
		return nil, err
	}
	return &Clients{
		S3:       s3.NewFromConfig(cfg),
		Metrics:  cloudwatch.NewFromConfig(cfg),
		Identity: sts.NewFromConfig(cfg),
	}, nil
}

// IdentityGetter is the STS call used to confirm credentials before uploading.
type IdentityGetter interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AccountID returns the AWS account the credentials belong to.
func AccountID(ctx context.Context, api IdentityGetter) (string, error) {
	result, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get caller identity: %w", err)
	}
	if result.Account == nil {
		return "", fmt.Errorf("account ID not returned")
	}
	return *result.Account, nil
}
