package s3

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/singleflight"

	"github.com/regtrace/lineage/pkg/loader"
)

// Loader is a SourceFileLoader implementation that fetches source files
// from an S3 bucket. File paths are treated as object keys.
type Loader struct {
	bucket string
	client *s3.Client

	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewLoaderWithClient creates a new Loader using an existing s3.Client.
// This is useful when a preconfigured AWS client should be reused.
func NewLoaderWithClient(bucket string, client *s3.Client) *Loader {
	return &Loader{
		bucket: bucket,
		client: client,
		cache:  make(map[string][]byte),
	}
}

// NewLoaderParams defines the configuration for creating a new Loader.
// Endpoint allows overriding the S3 endpoint for S3-compatible storage
// like MinIO.
type NewLoaderParams struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// NewLoader creates a new Loader with static credentials and the given
// endpoint/region.
func NewLoader(ctx context.Context, params NewLoaderParams) (*Loader, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(params.Region),
		config.WithBaseEndpoint(params.Endpoint),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	return &Loader{
		bucket: params.Bucket,
		client: s3.NewFromConfig(cfg),
		cache:  make(map[string][]byte),
	}, nil
}

// GetFileText retrieves the object for the given SourceFile from the
// configured bucket. Results are cached per file.
func (l *Loader) GetFileText(ctx context.Context, file loader.SourceFile) ([]byte, error) {
	cacheKey := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[cacheKey]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(cacheKey, func() (any, error) {
		l.cacheMu.RLock()
		if cached, ok := l.cache[cacheKey]; ok {
			l.cacheMu.RUnlock()
			return cached, nil
		}
		l.cacheMu.RUnlock()

		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.Path),
		})
		if err != nil {
			return nil, err
		}
		defer out.Body.Close()

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, out.Body); err != nil {
			return nil, err
		}

		byts := buf.Bytes()

		l.cacheMu.Lock()
		l.cache[cacheKey] = byts
		l.cacheMu.Unlock()

		return byts, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}
