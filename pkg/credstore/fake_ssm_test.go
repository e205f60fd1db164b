package credstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeParameter struct {
	value   string
	typ     ssmtypes.ParameterType
	keyID   string
	version int64
}

// fakeSSMClient is a map-backed SSMClientAPI.
type fakeSSMClient struct {
	mu         sync.Mutex
	parameters map[string]*fakeParameter
	errors     map[string]error
	calls      []string
}

func newFakeSSMClient() *fakeSSMClient {
	return &fakeSSMClient{
		parameters: make(map[string]*fakeParameter),
		errors:     make(map[string]error),
	}
}

func (f *fakeSSMClient) PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	f.calls = append(f.calls, "put:"+name)
	if err, ok := f.errors[name]; ok {
		return nil, err
	}

	existing, ok := f.parameters[name]
	if ok && !aws.ToBool(params.Overwrite) {
		return nil, &ssmtypes.ParameterAlreadyExists{Message: aws.String(fmt.Sprintf("Parameter %s already exists", name))}
	}

	version := int64(1)
	if ok {
		version = existing.version + 1
	}
	f.parameters[name] = &fakeParameter{
		value:   aws.ToString(params.Value),
		typ:     params.Type,
		keyID:   aws.ToString(params.KeyId),
		version: version,
	}
	return &ssm.PutParameterOutput{Version: version}, nil
}

func (f *fakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	f.calls = append(f.calls, "get:"+name)
	if err, ok := f.errors[name]; ok {
		return nil, err
	}

	p, ok := f.parameters[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String(fmt.Sprintf("Parameter %s not found", name))}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    aws.String(name),
			Type:    p.typ,
			Value:   aws.String(p.value),
			Version: p.version,
		},
	}, nil
}

func (f *fakeSSMClient) DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	f.calls = append(f.calls, "delete:"+name)
	if err, ok := f.errors[name]; ok {
		return nil, err
	}

	if _, ok := f.parameters[name]; !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String(fmt.Sprintf("Parameter %s not found", name))}
	}
	delete(f.parameters, name)
	return &ssm.DeleteParameterOutput{}, nil
}
