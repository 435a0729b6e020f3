package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// Signer реализует service.ObjectStorage поверх S3 presign client
// Подписанный URL - единственная операция, которая нужна этому сервису:
// файлы товаров загружаются в bucket отдельными скриптами
type Signer struct {
	logger    *zap.Logger
	presigner *awss3.PresignClient
	bucket    string
}

// NewSigner создаёт новый S3 signer для указанного bucket
func NewSigner(logger *zap.Logger, client *awss3.Client, bucket string) *Signer {
	return &Signer{
		logger:    logger,
		presigner: awss3.NewPresignClient(client),
		bucket:    bucket,
	}
}

// SignedDownloadURL выдаёт presigned GetObject URL со сроком действия ttl
// URL не требует AWS credentials у скачивающего
func (s *Signer) SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign get object: %w", err)
	}

	s.logger.Debug("download url signed",
		zap.String("object_key", key),
		zap.Duration("ttl", ttl),
	)

	return req.URL, nil
}
