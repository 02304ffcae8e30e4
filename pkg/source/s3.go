// Copyright 2026 The Certattest Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/certattest/certattest/pkg/awsutil"
	"github.com/certattest/certattest/pkg/config"
	"github.com/certattest/certattest/pkg/log"
)

// maxObjectSize bounds how much of an object is read. Certificates are a few
// kilobytes; anything larger is not a certificate.
const maxObjectSize = 1 << 20

// S3Source reads certificates from an S3 bucket or an S3 compatible service.
type S3Source struct {
	client s3iface.S3API
	bucket string
	prefix string
}

func NewS3Source(bucket, prefix string, cfg config.AWSConfig) (*S3Source, error) {
	if bucket == "" {
		return nil, errors.New("s3 source requires a bucket")
	}
	sess, err := awsutil.NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return NewS3SourceWithClient(s3.New(sess), bucket, prefix), nil
}

// NewS3SourceWithClient wraps an existing client.
func NewS3SourceWithClient(client s3iface.S3API, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Source) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	objectKey := s.objectKey(key)
	logger := log.ContextLogger(ctx).With("bucket", s.bucket, "key", objectKey)

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			logger.Debugw("certificate not found in S3", "duration", time.Since(start))
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, objectKey)
		}
		logger.Errorw("failed to get object from S3", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(io.LimitReader(result.Body, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	if len(data) > maxObjectSize {
		return nil, fmt.Errorf("object s3://%s/%s exceeds %d bytes", s.bucket, objectKey, maxObjectSize)
	}

	logger.Debugw("fetched certificate from S3", "size", len(data), "duration", time.Since(start))
	return data, nil
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}

func (s *S3Source) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}
