package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/OFFIS-RIT/bibliograph/pkg/loader"
)

type fakeBucket struct {
	objects map[string]string
	gets    []string
}

func (f *fakeBucket) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.gets = append(f.gets, aws.ToString(in.Bucket)+"/"+key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3GraphFileLoader(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{"stores/abc/data.csv": "Smith__2000,,,\n"}}
	l := NewS3GraphFileLoaderWithClient("inputs", bucket)
	file := loader.NewShorthandFile(loader.NewGraphFileParams{ID: "abc-0", FilePath: "stores/abc/data.csv", Loader: l})

	for range 2 {
		got, err := file.GetText(context.Background())
		if err != nil {
			t.Fatalf("GetText: %v", err)
		}
		if string(got) != "Smith__2000,,,\n" {
			t.Fatalf("GetText = %q", got)
		}
	}
	if len(bucket.gets) != 1 || bucket.gets[0] != "inputs/stores/abc/data.csv" {
		t.Fatalf("unexpected GetObject calls %v", bucket.gets)
	}

	missing := loader.NewShorthandFile(loader.NewGraphFileParams{ID: "abc-1", FilePath: "stores/abc/gone.csv", Loader: l})
	if _, err := missing.GetText(context.Background()); err == nil || !strings.Contains(err.Error(), "gone.csv") {
		t.Fatalf("expected error naming the key, got %v", err)
	}
}
