// Package journal records every status notification to a lode dataset and
// reads it back for the history and replay commands.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// Storage backends.
const (
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "lintstatus"

// Partition keys, outermost first.
const (
	keySession = "session"
	keyDay     = "day"
	keyState   = "state"
)

// StoreConfig selects and configures the journal storage.
type StoreConfig struct {
	// Backend is fs, s3, or memory.
	Backend string
	// Path is the root directory (fs) or "bucket/prefix" (s3).
	Path string
	// Dataset is the lode dataset ID (default lintstatus).
	Dataset string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style S3 addressing (MinIO, R2).
	UsePathStyle bool
}

// Validate checks that the backend can be constructed.
func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendFS:
		if c.Path == "" {
			return errors.New("journal fs backend requires a path")
		}
	case BackendS3:
		if bucket, _ := ParseS3Path(c.Path); bucket == "" {
			return errors.New("journal s3 backend requires a bucket")
		}
	default:
		return fmt.Errorf("unknown journal backend %q", c.Backend)
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(path, "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// OpenDataset opens the journal dataset described by cfg.
func OpenDataset(ctx context.Context, cfg StoreConfig) (lode.Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dataset := cfg.Dataset
	if dataset == "" {
		dataset = DefaultDataset
	}

	var factory lode.StoreFactory
	switch cfg.Backend {
	case BackendMemory:
		factory = SharedFactory(lode.NewMemory())
	case BackendFS:
		factory = lode.NewFSFactory(cfg.Path)
	case BackendS3:
		f, err := s3Factory(ctx, cfg)
		if err != nil {
			return nil, WrapInitError(err, dataset)
		}
		factory = f
	}

	ds, err := NewDataset(dataset, factory)
	if err != nil {
		return nil, WrapInitError(err, dataset)
	}
	return ds, nil
}

// NewDataset creates the journal dataset over factory with the
// session/day/state layout.
func NewDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(keySession, keyDay, keyState),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// SharedFactory returns a factory that always yields store, so a writer and
// a reader see the same in-memory data.
func SharedFactory(store lode.Store) lode.StoreFactory {
	return func() (lode.Store, error) { return store, nil }
}

// s3Factory builds an S3 store factory using the AWS default credential
// chain (env vars, shared config, IAM role).
func s3Factory(ctx context.Context, cfg StoreConfig) (lode.StoreFactory, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	bucket, prefix := ParseS3Path(cfg.Path)
	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{Bucket: bucket, Prefix: prefix})
	}, nil
}
