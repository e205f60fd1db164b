package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/doodlesbykumbi/keyvault/pkg/logging"
)

// SSMClientAPI is the subset of the SSM client used by SSMStore.
// This allows for fakes in tests.
type SSMClientAPI interface {
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
}

// SSMConfig holds AWS SSM specific configuration
type SSMConfig struct {
	Region  string
	Profile string
	// EndpointURL overrides the service endpoint, e.g. for LocalStack.
	EndpointURL string
	// KMSKeyID encrypts SecureString parameters with a customer managed key.
	// Empty uses the account's default aws/ssm key.
	KMSKeyID string
}

// SSMStore implements Store on AWS Systems Manager Parameter Store.
type SSMStore struct {
	client SSMClientAPI
	config SSMConfig
	logger logging.Logger
}

var _ Store = (*SSMStore)(nil)

// SSMOption is a functional option for configuring SSMStore
type SSMOption func(*SSMStore)

// WithSSMClient sets a custom SSM client (for testing)
func WithSSMClient(client SSMClientAPI) SSMOption {
	return func(s *SSMStore) {
		s.client = client
	}
}

// WithSSMLogger sets the logger
func WithSSMLogger(logger logging.Logger) SSMOption {
	return func(s *SSMStore) {
		s.logger = logger
	}
}

// NewSSMStore creates an SSM backed Store. Without WithSSMClient the AWS
// default credential chain is loaded.
func NewSSMStore(ctx context.Context, config SSMConfig, opts ...SSMOption) (*SSMStore, error) {
	s := &SSMStore{
		config: config,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := createSSMClient(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		s.client = client
	}

	return s, nil
}

func createSSMClient(ctx context.Context, config SSMConfig) (*ssm.Client, error) {
	var configOpts []func(*awsconfig.LoadOptions) error

	if config.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(config.Region))
	}
	if config.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(config.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return ssm.NewFromConfig(cfg, func(o *ssm.Options) {
		if config.EndpointURL != "" {
			o.BaseEndpoint = aws.String(config.EndpointURL)
		}
	}), nil
}

// Put writes the parameter, overwriting any existing value.
func (s *SSMStore) Put(ctx context.Context, path, value string, encrypted bool) error {
	input := &ssm.PutParameterInput{
		Name:      aws.String(path),
		Value:     aws.String(value),
		Overwrite: aws.Bool(true),
		Type:      types.ParameterTypeString,
	}
	if encrypted {
		input.Type = types.ParameterTypeSecureString
		if s.config.KMSKeyID != "" {
			input.KeyId = aws.String(s.config.KMSKeyID)
		}
	}

	if _, err := s.client.PutParameter(ctx, input); err != nil {
		return fmt.Errorf("ssm put parameter %s: %w", path, err)
	}

	s.logger.Debug(ctx, "put ssm parameter", "path", path, "type", string(input.Type))
	return nil
}

// Get reads the parameter with decryption.
func (s *SSMStore) Get(ctx context.Context, path string) (string, error) {
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		if isParameterNotFoundError(err) {
			return "", notFound(path)
		}
		return "", fmt.Errorf("ssm get parameter %s: %w", path, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %s has no value", path)
	}
	return *result.Parameter.Value, nil
}

// Delete removes the parameter.
func (s *SSMStore) Delete(ctx context.Context, path string) error {
	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(path),
	})
	if err != nil {
		if isParameterNotFoundError(err) {
			return notFound(path)
		}
		return fmt.Errorf("ssm delete parameter %s: %w", path, err)
	}

	s.logger.Debug(ctx, "deleted ssm parameter", "path", path)
	return nil
}

func isParameterNotFoundError(err error) bool {
	var nf *types.ParameterNotFound
	return errors.As(err, &nf)
}
