package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the slice of the S3 client the store uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store persists snapshots in an S3 bucket, one object per session.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := snapshot.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "sessions/")
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Store creates an S3-backed snapshot store. The prefix is prepended to
// every session key (e.g. "sessions/").
func NewS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) key(session string) string {
	return s.prefix + session
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, session string, snap *Snapshot) error {
	data, err := snap.Marshal()
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(session)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"taken-at": snap.TakenAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("loom: s3 snapshot upload failed: %w", err)
	}
	return nil
}

// Load implements Store. Any retrieval failure is reported as ErrNotFound;
// S3 does not distinguish a missing key from a denied one in a way worth
// surfacing to the resume path.
func (s *S3Store) Load(ctx context.Context, session string) (*Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(session)),
	})
	if err != nil {
		return nil, ErrNotFound
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("loom: s3 snapshot read failed: %w", err)
	}
	return Unmarshal(data)
}

// Delete implements Store.
func (s *S3Store) Delete(ctx context.Context, session string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(session)),
	})
	if err != nil {
		return fmt.Errorf("loom: s3 snapshot delete failed: %w", err)
	}
	return nil
}
