package s3

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
)

// ObjectGetter is the part of *s3.Client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3GraphFileLoader loads compile inputs from one bucket. File paths are
// object keys.
type S3GraphFileLoader struct {
	bucket string
	client ObjectGetter
	cache  loader.Cache
}

func NewS3GraphFileLoaderWithClient(bucket string, client ObjectGetter) *S3GraphFileLoader {
	return &S3GraphFileLoader{bucket: bucket, client: client}
}

func (l *S3GraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(file, func() ([]byte, error) {
		out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(l.bucket),
			Key:    aws.String(file.FilePath),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %s from S3: %w", file.FilePath, err)
		}
		defer out.Body.Close()

		b, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from S3: %w", file.FilePath, err)
		}
		return b, nil
	})
}
