package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ReceiptArchive stores receipt documents as JSON objects in an S3-compatible bucket.
type ReceiptArchive struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewReceiptArchive(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*ReceiptArchive, error) {
	log.Infof("Initializing receipt archive: endpoint=%s bucket=%s ssl=%t", cfg.Endpoint, cfg.Bucket, cfg.UseSSL)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Infof("Created receipt bucket %s", cfg.Bucket)
	}

	return &ReceiptArchive{client: client, bucket: cfg.Bucket, log: log}, nil
}

// ObjectKey places receipts under <kind>/<yyyy>/<mm>/<ref>-<uuid>.json.
func ObjectKey(kind, ref string, at time.Time) string {
	name := fmt.Sprintf("%s-%s.json", ref, uuid.NewString())
	return path.Join(kind, at.UTC().Format("2006"), at.UTC().Format("01"), name)
}

func (a *ReceiptArchive) Put(ctx context.Context, kind, ref string, receipt interface{}) (string, error) {
	data, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal receipt %s: %w", ref, err)
	}

	key := ObjectKey(kind, ref, time.Now())
	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt %s to bucket %s: %w", key, a.bucket, err)
	}

	a.log.Debugf("Receipt archived: bucket=%s key=%s etag=%s size=%d", info.Bucket, info.Key, info.ETag, info.Size)
	return key, nil
}
