package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// AssetUploader persists extracted assets (images pulled out of a document
// during conversion) and returns a public URL per asset name. Absence of an
// uploader means assets are kept locally beside the output instead.
type AssetUploader interface {
	UploadMany(ctx context.Context, assets map[string][]byte, taskID string) (map[string]string, error)
}

var assetContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// R2Uploader stores assets in an S3-compatible bucket (Cloudflare R2) under
// images/<taskID>/<name>.
type R2Uploader struct {
	logger    *zap.Logger
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewR2Uploader(logger *zap.Logger, endpoint, accessKey, secretKey, bucket, publicURL string) (*R2Uploader, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid R2 endpoint %q", endpoint)
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: u.Scheme != "http",
	})
	if err != nil {
		return nil, fmt.Errorf("create R2 client: %w", err)
	}

	return &R2Uploader{
		logger:    logger,
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// UploadMany uploads each asset and returns the name-to-URL mapping for the
// ones that succeeded. Per-asset failures are logged and skipped so one bad
// object does not sink the rest.
func (u *R2Uploader) UploadMany(ctx context.Context, assets map[string][]byte, taskID string) (map[string]string, error) {
	urls := make(map[string]string, len(assets))

	for name, data := range assets {
		contentType, ok := assetContentTypes[strings.ToLower(path.Ext(name))]
		if !ok {
			contentType = "image/png"
		}

		key := fmt.Sprintf("images/%s/%s", taskID, name)
		_, err := u.client.PutObject(ctx, u.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		if err != nil {
			u.logger.Error("Asset upload failed, skipping",
				zap.String("task_id", taskID),
				zap.String("asset", name),
				zap.Error(err),
			)
			continue
		}
		urls[name] = u.publicURL + "/" + key
	}

	u.logger.Info("Assets uploaded",
		zap.String("task_id", taskID),
		zap.Int("count", len(urls)),
	)
	return urls, nil
}
