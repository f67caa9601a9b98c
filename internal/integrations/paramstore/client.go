package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// RefPrefix marks a configuration value that names an SSM parameter.
const RefPrefix = "ssm:"

// ssmAPI is the minimal AWS SSM interface required by Resolver.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Resolver turns configuration values into secrets. Values of the form
// "ssm:<name>" are read from Parameter Store with decryption; anything else is
// returned unchanged.
type Resolver struct {
	api ssmAPI
}

// NewResolver creates a Resolver with the given SSM API implementation.
func NewResolver(api ssmAPI) (*Resolver, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Resolver{api: api}, nil
}

// IsRef reports whether value names an SSM parameter.
func IsRef(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), RefPrefix)
}

// Resolve returns the secret behind value.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !IsRef(value) {
		return value, nil
	}
	if r == nil || r.api == nil {
		return "", errors.New("paramstore: resolver not initialized")
	}

	name := strings.TrimSpace(strings.TrimPrefix(value, RefPrefix))
	if name == "" {
		return "", errors.New("paramstore: parameter name is required")
	}

	withDecryption := true
	out, err := r.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", name)
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}
