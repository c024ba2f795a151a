package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used by the slot repo.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3SlotRepo struct {
	client S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3SlotRepo stores each slot as a JSON object named <prefix><key>.json.
func NewS3SlotRepo(client S3API, bucket, prefix string, logger zerolog.Logger) SlotRepository {
	return &s3SlotRepo{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.With().Str("repository", "S3SlotRepo").Logger(),
	}
}

func (r *s3SlotRepo) objectKey(key string) string {
	return r.prefix + strings.ReplaceAll(key, ":", "/") + ".json"
}

func (r *s3SlotRepo) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.objectKey(key)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("getting slot object %s: %w", key, err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading slot object %s: %w", key, err)
	}
	return body, nil
}

func (r *s3SlotRepo) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.objectKey(key)),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("putting slot object %s: %w", key, err)
	}
	r.logger.Debug().Str("slot_key", key).Str("bucket", r.bucket).Msg("Slot object written")
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	// Some S3-compatible stores answer a missing object with a generic API error.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
