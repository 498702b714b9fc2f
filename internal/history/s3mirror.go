package history

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/logging"
)

// S3Mirror uploads each history snapshot to an S3 object. Uploads are
// fire-and-forget: a failed upload is logged and the local snapshot
// remains the source of truth.
type S3Mirror struct {
	client  *s3.Client
	bucket  string
	key     string
	timeout time.Duration
	log     zerolog.Logger
}

// NewS3Mirror builds a mirror for s3://bucket/key in the given region.
func NewS3Mirror(ctx context.Context, region, bucket, key string, timeout time.Duration) (*S3Mirror, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		// Retries are handled per-call by the upload timeout; stacking
		// SDK retries on top makes latency unpredictable.
		awsconfig.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, fmt.Errorf("history: load aws config: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &S3Mirror{
		client:  s3.NewFromConfig(awsCfg),
		bucket:  bucket,
		key:     key,
		timeout: timeout,
		log:     logging.Component("history.s3"),
	}, nil
}

// Upload puts the snapshot bytes to the configured object.
func (m *S3Mirror) Upload(snapshot []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(m.bucket),
		Key:             aws.String(m.key),
		Body:            bytes.NewReader(snapshot),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		m.log.Error().Err(err).
			Str("bucket", m.bucket).
			Str("key", m.key).
			Msg("snapshot mirror upload failed")
		return
	}
	m.log.Debug().Int("bytes", len(snapshot)).Str("bucket", m.bucket).Msg("snapshot mirrored")
}
