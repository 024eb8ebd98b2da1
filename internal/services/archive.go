package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// ArchiveService stores raw upstream payloads in S3 so ingestion can be replayed and audited.
type ArchiveService struct {
	client     s3iface.S3API
	bucketName string
}

var _ RawArchiver = (*ArchiveService)(nil)

func NewArchiveService(region, bucketName, accessKey, secretKey string) (*ArchiveService, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	return newArchiveServiceWithClient(s3.New(sess), bucketName), nil
}

func newArchiveServiceWithClient(client s3iface.S3API, bucketName string) *ArchiveService {
	return &ArchiveService{client: client, bucketName: bucketName}
}

func (s *ArchiveService) ArchiveRawResponse(ctx context.Context, widgetID uint, provider string, body []byte) error {
	key := archiveKey(widgetID, provider, time.Now().UTC())

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func archiveKey(widgetID uint, provider string, at time.Time) string {
	return fmt.Sprintf("upstream/%s/widget-%d/%s/%s.json", provider, widgetID, at.Format("2006/01/02"), uuid.NewString())
}
