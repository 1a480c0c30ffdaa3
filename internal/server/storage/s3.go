package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/upass-project/upass/internal/common"
)

// s3API is the object-store surface the backend uses; *s3.Client
// satisfies it and tests provide a stub.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds the settings for an S3-compatible backend (AWS S3,
// MinIO, etc.).
type S3Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store keeps one JSON object per username under vaults/<username>.json.
type S3Store struct {
	client s3API
	bucket string
}

// s3Record is the stored object body.
type s3Record struct {
	PublicKey string    `json:"public_key"`
	Blob      string    `json:"blob"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewS3Store builds a store over an S3-compatible endpoint using static
// credentials.
func NewS3Store(ctx context.Context, c S3Config) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(c.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.RootUser,
			c.RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.BaseEndpoint)
		// Path-style addressing keeps MinIO and other self-hosted
		// endpoints working without wildcard DNS.
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: c.Bucket}, nil
}

func objectKey(username string) string {
	return "vaults/" + username + ".json"
}

// isNotFound recognizes the absence responses of HeadObject (NotFound)
// and GetObject (NoSuchKey).
func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

func (s *S3Store) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(username)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("vault exists: %w", err)
	}
	return true, nil
}

func (s *S3Store) Get(ctx context.Context, username string) (*Record, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(username)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("vault get: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("vault get: %w", err)
	}
	var stored s3Record
	if err := json.Unmarshal(body, &stored); err != nil {
		return nil, fmt.Errorf("vault get: %w", err)
	}
	return &Record{
		Username:  username,
		PublicKey: stored.PublicKey,
		Blob:      stored.Blob,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}

func (s *S3Store) Put(ctx context.Context, rec *Record) error {
	body, err := json.Marshal(s3Record{
		PublicKey: rec.PublicKey,
		Blob:      rec.Blob,
		UpdatedAt: nowFn().UTC(),
	})
	if err != nil {
		return fmt.Errorf("vault put: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(rec.Username)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("vault put: %w", err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, username string) error {
	exists, err := s.Exists(ctx, username)
	if err != nil {
		return err
	}
	if !exists {
		return common.ErrNotFound
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(username)),
	})
	if err != nil {
		return fmt.Errorf("vault delete: %w", err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }
