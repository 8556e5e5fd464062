package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/team-tickets/api"
	"github.com/International-Combat-Archery-Alliance/team-tickets/config"
	"github.com/International-Combat-Archery-Alliance/team-tickets/dynamo"
	"github.com/International-Combat-Archery-Alliance/team-tickets/memory"
	"github.com/International-Combat-Archery-Alliance/team-tickets/storage"
	"github.com/International-Combat-Archery-Alliance/team-tickets/telemetry"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type dependencies struct {
	db          api.DB
	uploader    storage.FileUploader
	emailSender email.Sender
}

// awsConfigLoader loads the shared AWS config once, and only if something needs it.
type awsConfigLoader struct {
	cfg *aws.Config
}

func (l *awsConfigLoader) load(ctx context.Context) (aws.Config, error) {
	if l.cfg != nil {
		return *l.cfg, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to get aws config: %w", err)
	}
	telemetry.InstrumentAWS(&cfg)
	l.cfg = &cfg

	return cfg, nil
}

func newDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger, awsCfg *awsConfigLoader) (*dependencies, error) {
	db, err := createDB(ctx, cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	uploader, err := createUploader(ctx, cfg)
	if err != nil {
		return nil, err
	}

	emailSender, err := createEmailSender(ctx, cfg, logger, awsCfg)
	if err != nil {
		return nil, err
	}

	return &dependencies{
		db:          db,
		uploader:    uploader,
		emailSender: emailSender,
	}, nil
}

func createDB(ctx context.Context, cfg *config.Config, awsCfg *awsConfigLoader) (api.DB, error) {
	if cfg.Store == config.StoreMemory {
		return memory.NewDB(), nil
	}

	c, err := awsCfg.load(ctx)
	if err != nil {
		return nil, err
	}

	dynamoClient := dynamodb.NewFromConfig(c, func(o *dynamodb.Options) {
		if cfg.Dynamo.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Dynamo.Endpoint)
		}
	})

	return dynamo.NewDB(dynamoClient, cfg.Dynamo.TableName), nil
}

func createUploader(ctx context.Context, cfg *config.Config) (storage.FileUploader, error) {
	if cfg.Uploads == config.UploadsDisk {
		return storage.NewDiskUploader(cfg.UploadsDir, cfg.PublicBaseURL)
	}

	return storage.NewS3Uploader(ctx, storage.S3UploaderConfig{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		PublicBaseURL:   cfg.S3.PublicBaseURL,
	})
}
