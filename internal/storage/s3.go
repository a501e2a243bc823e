package storage

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/domain"
)

// s3API is the subset of the S3 client the store needs.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store lists objects in one bucket of an S3-compatible store.
type S3Store struct {
	client s3API
	bucket string
}

// NewS3Store builds an S3Store from a connection. Static credentials in
// the connection take precedence; without them the SDK's default chain
// applies (instance profiles, env).
func NewS3Store(conn config.ConnectionConfig) *S3Store {
	opts := s3.Options{
		Region:       conn.Region,
		UsePathStyle: conn.PathStyle,
	}
	if conn.AccessKeyID != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(
			conn.AccessKeyID, conn.SecretAccessKey, "")
	}
	if conn.Endpoint != "" {
		endpoint := conn.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return &S3Store{client: s3.New(opts), bucket: conn.Bucket}
}

// List pages through ListObjectsV2 bounded by the pattern's literal
// prefix and returns matching objects as s3:// URLs in sorted order.
func (s *S3Store) List(ctx context.Context, pattern string) ([]Object, error) {
	re, err := globToRegexp(pattern)
	if err != nil {
		return nil, domain.ErrAction(domain.ErrKindSourceObjectMissing, err)
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if prefix := literalPrefix(pattern); prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var out []Object
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, domain.ErrAction(domain.ErrKindConnectionUnavailable, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !re.MatchString(key) {
				continue
			}
			out = append(out, Object{
				Key:  "s3://" + s.bucket + "/" + key,
				Rel:  key,
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
