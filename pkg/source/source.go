// Package source loads blueprint text from stdin, the local filesystem, or S3.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/bpdecode/internal/logctx"
)

// Stdin is the URI that selects standard input.
const Stdin = "-"

// DefaultMaxBytes bounds how much text a single Load reads.
const DefaultMaxBytes = 256 << 20

// ErrTooLarge indicates the input exceeded Loader.MaxBytes.
var ErrTooLarge = errors.New("input too large")

// ObjectGetter is the subset of the S3 API used by Loader.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads blueprint text from a URI.
type Loader struct {
	// S3 serves s3:// URIs. If nil, a client is built from the default AWS
	// configuration on first use.
	S3 ObjectGetter

	// Stdin is read for the "-" URI. Defaults to os.Stdin.
	Stdin io.Reader

	// MaxBytes caps the bytes read. Zero means DefaultMaxBytes.
	MaxBytes int64
}

// Load reads the whole input named by uri with a default Loader.
func Load(ctx context.Context, uri string) ([]byte, error) {
	var l Loader
	return l.Load(ctx, uri)
}

// Load reads the whole input named by uri: "-" for stdin, "s3://bucket/key"
// for an S3 object, anything else as a local path.
func (l *Loader) Load(ctx context.Context, uri string) ([]byte, error) {
	log := logctx.FromContext(ctx)

	switch {
	case uri == Stdin:
		in := l.Stdin
		if in == nil {
			in = os.Stdin
		}
		log.Debug().Msg("reading blueprint from stdin")
		return l.readAll(in, "stdin")

	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := ParseS3URI(uri)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("invalid S3 URI %q: missing object key", uri)
		}
		body, err := l.getObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		log.Debug().Str("bucket", bucket).Str("key", key).Msg("reading blueprint from S3")
		return l.readAll(body, uri)

	default:
		f, err := os.Open(uri)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		log.Debug().Str("path", uri).Msg("reading blueprint from file")
		return l.readAll(f, uri)
	}
}

func (l *Loader) getObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if l.S3 == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
		l.S3 = s3.NewFromConfig(cfg)
	}

	resp, err := l.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}

func (l *Loader) readAll(r io.Reader, name string) ([]byte, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("read %s: %w (limit %d bytes)", name, ErrTooLarge, limit)
	}
	return data, nil
}

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	bucket, key, _ = strings.Cut(path, "/")
	if bucket == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}
	return bucket, key, nil
}
