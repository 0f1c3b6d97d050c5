package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Stdout is the destination that writes the artifact to standard output
const Stdout = "-"

// Object describes the artifact handed to a sink.
type Object struct {
	Data            []byte
	ContentType     string
	ContentEncoding string
	Metadata        map[string]string
}

// Sink stores a finished artifact.
type Sink interface {
	Write(ctx context.Context, obj Object) error
	String() string
}

// SinkOptions configures the cloud sinks.
type SinkOptions struct {
	S3Region           string
	S3Endpoint         string
	GCSCredentialsFile string
	// Stdout replaces os.Stdout for the "-" destination
	Stdout io.Writer
}

// NewSink picks the sink for destination: "-" for stdout, s3://bucket/key,
// gs://bucket/object, or a local path. Cloud clients are created on first
// write.
func NewSink(destination string, opts SinkOptions) (Sink, error) {
	switch {
	case destination == Stdout:
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		return &writerSink{w: w}, nil
	case strings.HasPrefix(destination, "s3://"):
		bucket, key, err := splitBucketURL(destination, "s3://")
		if err != nil {
			return nil, err
		}
		return &s3Sink{bucket: bucket, key: key, region: opts.S3Region, endpoint: opts.S3Endpoint}, nil
	case strings.HasPrefix(destination, "gs://"):
		bucket, object, err := splitBucketURL(destination, "gs://")
		if err != nil {
			return nil, err
		}
		return &gcsSink{bucket: bucket, object: object, credentialsFile: opts.GCSCredentialsFile}, nil
	case destination == "":
		return nil, fmt.Errorf("empty destination")
	default:
		return &fileSink{path: destination}, nil
	}
}

func splitBucketURL(url, scheme string) (string, string, error) {
	rest := strings.TrimPrefix(url, scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid destination %q: want %sbucket/key", url, scheme)
	}
	return bucket, key, nil
}

// writerSink writes to an io.Writer such as stdout
type writerSink struct {
	w io.Writer
}

func (s *writerSink) Write(_ context.Context, obj Object) error {
	_, err := s.w.Write(obj.Data)
	return err
}

func (s *writerSink) String() string { return "stdout" }

// fileSink replaces a local file atomically
type fileSink struct {
	path string
}

func (s *fileSink) Write(_ context.Context, obj Object) (err error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(obj.Data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil { //nolint:gosec // the artifact is meant to be shared
		return fmt.Errorf("failed to chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

func (s *fileSink) String() string { return s.path }

// uploader is the part of manager.Uploader used by s3Sink
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// s3Sink uploads to an S3 bucket through the upload manager
type s3Sink struct {
	bucket   string
	key      string
	region   string
	endpoint string
	uploader uploader
}

func (s *s3Sink) client(ctx context.Context) (uploader, error) {
	if s.uploader != nil {
		return s.uploader, nil
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if s.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
			o.UsePathStyle = true
		}
	})
	s.uploader = manager.NewUploader(client)
	return s.uploader, nil
}

func (s *s3Sink) Write(ctx context.Context, obj Object) error {
	up, err := s.client(ctx)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(obj.Data),
		ContentType: aws.String(obj.ContentType),
		Metadata:    obj.Metadata,
	}
	if obj.ContentEncoding != "" {
		input.ContentEncoding = aws.String(obj.ContentEncoding)
	}
	if _, err := up.Upload(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *s3Sink) String() string { return "s3://" + s.bucket + "/" + s.key }

// gcsSink writes a Google Cloud Storage object
type gcsSink struct {
	bucket          string
	object          string
	credentialsFile string
	clientOptions   []option.ClientOption
}

func (s *gcsSink) Write(ctx context.Context, obj Object) error {
	opts := append([]option.ClientOption(nil), s.clientOptions...)
	if s.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create GCS client: %w", err)
	}
	defer client.Close()

	writer := client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = obj.ContentType
	writer.ContentEncoding = obj.ContentEncoding
	writer.Metadata = obj.Metadata

	if _, err := writer.Write(obj.Data); err != nil {
		_ = writer.Close() // Ignore close error
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

func (s *gcsSink) String() string { return "gs://" + s.bucket + "/" + s.object }
