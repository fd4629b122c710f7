// Package archive keeps verified webhook bodies in a gocloud.dev bucket.
package archive

import (
	"context"
	"log/slog"
	"path"
	"time"

	"fintrack/config"
	"fintrack/internal/domain/service"
	"fintrack/internal/errors"

	"go.uber.org/fx"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
)

type noopArchive struct{}

func (noopArchive) Store(context.Context, string, []byte) error { return nil }

func (noopArchive) Close() error { return nil }

// BlobArchive writes one object per webhook delivery under
// <prefix>/<yyyy>/<mm>/<dd>/<eventID>.json.
type BlobArchive struct {
	bucket *blob.Bucket
	prefix string
	now    func() time.Time
}

// Params holds dependencies for the webhook archive, injected by Fx
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewWebhookArchive opens the configured bucket, or returns a no-op archive
// when no bucket URL is set.
func NewWebhookArchive(params Params) (service.WebhookArchive, error) {
	cfg := params.Config.WebhookArchive
	if cfg == nil || cfg.BucketURL == "" {
		params.Logger.Info("Webhook archive not configured, raw bodies will not be kept")

		return noopArchive{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	archive, err := OpenBlobArchive(ctx, cfg.BucketURL, cfg.Prefix)
	if err != nil {
		return nil, err
	}

	params.Logger.Info("Webhook archive opened", slog.String("bucket_url", cfg.BucketURL))

	params.Lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return archive.Close()
		},
	})

	return archive, nil
}

// OpenBlobArchive opens bucketURL with any registered gocloud.dev driver.
func OpenBlobArchive(ctx context.Context, bucketURL, prefix string) (*BlobArchive, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "open bucket %s", bucketURL)
	}

	return &BlobArchive{bucket: bucket, prefix: prefix, now: time.Now}, nil
}

// Key returns the object key the body of eventID is stored under.
func (a *BlobArchive) Key(eventID string) string {
	day := a.now().UTC()

	return path.Join(a.prefix, day.Format("2006"), day.Format("01"), day.Format("02"), eventID+".json")
}

func (a *BlobArchive) Store(ctx context.Context, eventID string, rawBody []byte) error {
	if eventID == "" {
		return errors.New("event id is required")
	}

	err := a.bucket.WriteAll(ctx, a.Key(eventID), rawBody, &blob.WriterOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "archive webhook %s", eventID)
	}

	return nil
}

// Read returns a previously archived body.
func (a *BlobArchive) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := a.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return data, nil
}

func (a *BlobArchive) Close() error {
	return errors.WithStack(a.bucket.Close())
}
