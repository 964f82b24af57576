package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store is the opt-in alternative FinalStore (D5): final placement
// uploads the staging file as an object and removes the local staging
// copy. Destination-relative paths become object keys verbatim.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
}

func NewS3Store(ctx context.Context, bucket, region string) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Store{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		region: region,
	}, nil
}

func (s *S3Store) EnsureDir(ctx context.Context, destRelPath string) error {
	return nil
}

func (s *S3Store) Exists(ctx context.Context, destRelPath string) bool {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(destRelPath),
	})
	return err == nil
}

// Place uploads the staging file at stagingPath as object destRelPath,
// then removes the local staging copy. Returns the object's https URL.
func (s *S3Store) Place(ctx context.Context, stagingPath, destRelPath string) (string, error) {
	f, err := os.Open(stagingPath)
	if err != nil {
		return "", fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(destRelPath),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	if err := os.Remove(stagingPath); err != nil {
		return "", fmt.Errorf("remove staging file after upload: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, destRelPath), nil
}
