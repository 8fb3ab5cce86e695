package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/OFFIS-RIT/bibliograph/internal/util"
	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
	s3loader "github.com/OFFIS-RIT/bibliograph/pkg/loader/s3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// deleteBatch is the most keys DeleteObjects accepts per call.
const deleteBatch = 1000

// Client keeps uploaded compile inputs in one bucket under
// "stores/<store id>/".
type Client struct {
	s3     *s3.Client
	bucket string
}

// NewS3Client builds a client from the AWS_* environment variables.
func NewS3Client(ctx context.Context) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(util.GetEnv("AWS_REGION")),
		config.WithBaseEndpoint(util.GetEnv("AWS_ENDPOINT")),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			util.GetEnv("AWS_ACCESS_KEY"),
			util.GetEnv("AWS_SECRET_KEY"),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &Client{s3: client, bucket: util.GetEnvString("AWS_BUCKET", "bibliograph")}, nil
}

// Loader returns a file loader reading from the same bucket.
func (c *Client) Loader() loader.GraphFileLoader {
	return s3loader.NewS3GraphFileLoaderWithClient(c.bucket, c.s3)
}

// StorePrefix is the key prefix of every input of a store.
func StorePrefix(storeID string) string {
	return "stores/" + storeID + "/"
}

// InputKey builds the object key of an uploaded input. The extension of
// name is kept so the content type survives.
func InputKey(storeID, fileID, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return StorePrefix(storeID) + fileID + ext
}

// PutInput uploads one compile input and returns its key.
func (c *Client) PutInput(ctx context.Context, storeID, name string, body io.Reader) (string, error) {
	id, err := util.NewID()
	if err != nil {
		return "", err
	}
	key := InputKey(storeID, id, name)
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "text/csv"
	}
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to S3: %w", name, err)
	}
	return key, nil
}

// ListInputs returns the keys stored for a store.
func (c *Client) ListInputs(ctx context.Context, storeID string) ([]string, error) {
	keys := make([]string, 0)
	p := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(StorePrefix(storeID)),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list store inputs: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// DeleteInputs removes every input of a store.
func (c *Client) DeleteInputs(ctx context.Context, storeID string) error {
	keys, err := c.ListInputs(ctx, storeID)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}
		_, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete store inputs: %w", err)
		}
	}
	return nil
}
