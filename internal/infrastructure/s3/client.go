package s3infra

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/barter-api/internal/config"
)

// Store wraps S3 operations for profile images.
type Store struct {
	client           *s3.Client
	bucket           string
	defaultAvatarKey string
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) *s3.Client {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}

	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		panic("failed to load AWS config for S3: " + err.Error())
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewStore creates a Store with the given S3 client, bucket name, and the key
// of the stock profile image copied for new accounts.
func NewStore(client *s3.Client, bucket, defaultAvatarKey string) *Store {
	return &Store{client: client, bucket: bucket, defaultAvatarKey: defaultAvatarKey}
}

// Upload streams a file to S3 under key and returns the object URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return s.objectURL(key), nil
}

// EnsureDefaultAvatar copies the stock profile image to the user's own key
// and returns its URL. Each account gets its own copy so a later custom
// upload simply overwrites it.
func (s *Store) EnsureDefaultAvatar(ctx context.Context, userID string) (string, error) {
	key := fmt.Sprintf("profiles/%s", userID)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(fmt.Sprintf("%s/%s", s.bucket, s.defaultAvatarKey)),
		Key:        aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("s3 copy default avatar: %w", err)
	}
	return s.objectURL(key), nil
}

// Delete removes a file from S3.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *Store) objectURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}
