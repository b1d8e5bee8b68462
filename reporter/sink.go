// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package reporter // import "go.opentelemetry.io/stackprof/reporter"

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"

	"go.opentelemetry.io/stackprof/profile"
)

// ZstdSuffix marks destinations that are written zstd compressed.
const ZstdSuffix = ".zst"

// ErrInvalidDestination is returned for destinations that can't be parsed.
var ErrInvalidDestination = errors.New("invalid destination")

// Destination is a parsed output location of a profile.
type Destination struct {
	// Path is the local file path. Empty for S3 destinations.
	Path string
	// Bucket and Key address an S3 object.
	Bucket string
	Key    string
	// Compressed is set if the profile is zstd compressed.
	Compressed bool
}

// ParseDestination parses a file path or an s3://bucket/key URL. A trailing
// ZstdSuffix selects compression.
func ParseDestination(out string) (Destination, error) {
	if out == "" {
		return Destination{}, fmt.Errorf("%w: empty", ErrInvalidDestination)
	}
	dst := Destination{Compressed: strings.HasSuffix(out, ZstdSuffix)}
	if !strings.HasPrefix(out, "s3://") {
		dst.Path = filepath.Clean(out)
		return dst, nil
	}

	u, err := url.Parse(out)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	dst.Bucket = u.Host
	dst.Key = strings.TrimPrefix(u.Path, "/")
	if dst.Bucket == "" || dst.Key == "" {
		return Destination{}, fmt.Errorf("%w: %s lacks bucket or key", ErrInvalidDestination, out)
	}
	return dst, nil
}

// IsS3 reports whether d addresses an S3 object.
func (d Destination) IsS3() bool {
	return d.Bucket != ""
}

func (d Destination) String() string {
	if d.IsS3() {
		return "s3://" + d.Bucket + "/" + d.Key
	}
	return d.Path
}

// Save writes p as JSON to out.
func Save(ctx context.Context, out string, p *profile.Profile) error {
	dst, err := ParseDestination(out)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = encode(&buf, p, dst.Compressed); err != nil {
		return err
	}

	if dst.IsS3() {
		client, err := s3Client(ctx)
		if err != nil {
			return err
		}
		_, err = client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(dst.Bucket),
			Key:    aws.String(dst.Key),
			Body:   bytes.NewReader(buf.Bytes()),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", dst, err)
		}
		log.Debugf("Uploaded profile to %s (%d bytes)", dst, buf.Len())
		return nil
	}

	if dir := filepath.Dir(dst.Path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(dst.Path, buf.Bytes(), 0o644)
}

// Load reads a profile written by Save.
func Load(ctx context.Context, in string) (*profile.Profile, error) {
	src, err := ParseDestination(in)
	if err != nil {
		return nil, err
	}

	var r io.ReadCloser
	if src.IsS3() {
		client, err := s3Client(ctx)
		if err != nil {
			return nil, err
		}
		obj, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(src.Bucket),
			Key:    aws.String(src.Key),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", src, err)
		}
		r = obj.Body
	} else {
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, err
		}
		r = f
	}
	defer r.Close()

	p, err := decode(r, src.Compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}
	return p, nil
}

func encode(w io.Writer, p *profile.Profile, compressed bool) error {
	if !compressed {
		return profile.Encode(w, p)
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return err
	}
	if err = profile.Encode(enc, p); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func decode(r io.Reader, compressed bool) (*profile.Profile, error) {
	if !compressed {
		return profile.Decode(r)
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return profile.Decode(dec)
}

func s3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Non-AWS object stores set AWS_ENDPOINT_URL and usually want
		// path-style addressing.
		o.UsePathStyle = os.Getenv("AWS_ENDPOINT_URL") != ""
	}), nil
}
