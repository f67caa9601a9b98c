package convstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"conversation-store/internal/availability"
	"conversation-store/internal/config"
	"conversation-store/internal/integrations/paramstore"
	"conversation-store/internal/metrics"
	"conversation-store/internal/repository"
)

// Open builds the Store from configuration. It does not fail on missing or
// bad connection parameters: the gate is closed instead and every operation
// degrades. ctx bounds the key lookup and the availability probe.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Store, error) {
	base := defaultStore()
	for _, opt := range opts {
		opt(base)
	}

	loc, err := cfg.Location()
	if err != nil {
		base.logger.Warn("unknown time zone, using UTC", "timeZone", cfg.TimeZone, "err", err)
	}
	opts = append([]Option{
		WithLocation(loc),
		WithTTL(cfg.TTL),
		WithKeepLast(cfg.KeepLast),
		WithHistoryLimit(cfg.HistoryLimit),
		WithRefreshWorkers(cfg.RefreshWorkers),
		WithRefreshQueue(cfg.RefreshQueue),
	}, opts...)

	settings := availability.Settings{
		Database:     cfg.Store.Database,
		Container:    cfg.Store.Container,
		PartitionKey: cfg.Store.PartitionKey,
	}
	gateOpts := []availability.Option{
		availability.WithLogger(base.logger),
		availability.WithObserver(base.metrics.SetAvailable),
	}

	if missing := cfg.Store.Missing(); len(missing) > 0 {
		reason := "missing configuration: " + strings.Join(missing, ", ")
		return New(availability.Closed(settings, reason, gateOpts...), nil, opts...)
	}

	docs, err := connect(ctx, cfg.Store, base.metrics)
	if err != nil {
		return New(availability.Closed(settings, err.Error(), gateOpts...), nil, opts...)
	}
	return New(availability.Open(ctx, settings, docs, gateOpts...), docs, opts...)
}

// connect builds the DynamoDB-backed document store client.
func connect(ctx context.Context, sc config.StoreConfig, m *metrics.Metrics) (*repository.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(sc.Region))
	if err != nil {
		return nil, fmt.Errorf("convstore: load AWS config: %w", err)
	}

	key := sc.Key
	if paramstore.IsRef(key) {
		resolver, err := paramstore.NewResolver(ssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("convstore: create parameter resolver: %w", err)
		}
		if key, err = resolver.Resolve(ctx, key); err != nil {
			return nil, fmt.Errorf("convstore: resolve store key: %w", err)
		}
	}
	creds, err := staticCredentials(key)
	if err != nil {
		return nil, err
	}

	api := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(sc.Endpoint)
		o.Credentials = creds
	})
	return repository.New(api, repository.TableName(sc.Database, sc.Container), sc.PartitionKey,
		repository.WithMetrics(m))
}

// staticCredentials parses a store key of the form "<accessKeyID>:<secret>".
func staticCredentials(key string) (aws.CredentialsProvider, error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok || id == "" || secret == "" {
		return nil, errors.New("convstore: store key must be <accessKeyID>:<secretAccessKey>")
	}
	return aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(id, secret, "")), nil
}
