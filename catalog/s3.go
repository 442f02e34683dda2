package catalog

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3KeyPrefix is the fixed prefix every cataloged object lives under.
const s3KeyPrefix = "weather_data"

// S3 implements Catalog over an S3-compatible object store, sharing
// the same interface as Local so either can back the query engine.
type S3 struct {
	Bucket string
	client *s3.S3
}

var _ Catalog = (*S3)(nil)

// NewS3 builds a client against endpoint (empty uses the AWS default
// resolver), matching the `s3_bucket`/`s3_endpoint` config options.
func NewS3(bucket, endpoint string) (*S3, error) {
	cfg := aws.NewConfig()
	if endpoint != "" {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("catalog: new aws session: %w", err)
	}
	return &S3{Bucket: bucket, client: s3.New(sess)}, nil
}

// BuildPath returns the S3 key (not a filesystem path) for filename,
// deterministic from its embedded timestamp.
func (s *S3) BuildPath(filename string, generatedAt time.Time) string {
	return fmt.Sprintf("%s/%s/%s", s3KeyPrefix, generatedAt.UTC().Format(dateLayout), filename)
}

// List applies the same filename-filter logic as Local after listing
// every key under the shared prefix.
func (s *S3) List(ctx context.Context, p Params) ([]Entry, error) {
	var out []Entry
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s3KeyPrefix + "/"),
	}
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			kind, generatedAt, err := ParseFilename(key)
			if err != nil {
				continue
			}
			if p.Kind != "" && kind != p.Kind {
				continue
			}
			if !inWindow(generatedAt, p.Start, p.End) {
				continue
			}
			out = append(out, Entry{Path: key, Kind: kind, GeneratedAt: generatedAt})
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list s3://%s/%s: %w", s.Bucket, s3KeyPrefix, err)
	}
	return out, nil
}

// Download streams the object body for filename's deterministic key.
func (s *S3) Download(ctx context.Context, filename string, generatedAt time.Time) (io.ReadCloser, error) {
	key := s.BuildPath(filename, generatedAt)
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: get s3://%s/%s: %w", s.Bucket, key, err)
	}
	return out.Body, nil
}
