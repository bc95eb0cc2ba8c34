package mainconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/nutri-agenda/internal/config"
)

func TestLoadAWSConfig_StaticCredentials(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{AWSRegion: "us-west-2", AWSAccessKeyID: "test", AWSSecretAccessKey: "secret"}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
	assert.Nil(t, awsCfg.EndpointResolverWithOptions)
}

func TestLoadAWSConfig_EndpointOverride(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{
		AWSRegion:           "us-east-1",
		AWSAccessKeyID:      "test",
		AWSSecretAccessKey:  "test",
		AWSEndpointOverride: "http://localhost:4566",
	}

	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, awsCfg.EndpointResolverWithOptions)

	ep, err := awsCfg.EndpointResolverWithOptions.ResolveEndpoint("S3", "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4566", ep.URL)

	_, err = awsCfg.EndpointResolverWithOptions.ResolveEndpoint("SQS", "us-east-1")
	require.Error(t, err)
}
