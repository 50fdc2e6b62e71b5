package output

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies result files to a bucket
type S3Uploader struct {
	client ObjectPutter
	bucket string
	log    *zap.Logger
}

// NewS3Uploader creates an uploader using the default AWS credential chain
func NewS3Uploader(ctx context.Context, region, bucket string, log *zap.Logger) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), bucket, log), nil
}

// NewS3UploaderWithClient creates an uploader around an existing client
func NewS3UploaderWithClient(client ObjectPutter, bucket string, log *zap.Logger) *S3Uploader {
	return &S3Uploader{
		client: client,
		bucket: bucket,
		log:    log.Named("s3"),
	}
}

// UploadFile puts the file at path under key
func (u *S3Uploader) UploadFile(ctx context.Context, path, key string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/json; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to s3://%s/%s: %w", path, u.bucket, key, err)
	}

	u.log.Info("Uploaded results",
		zap.String("bucket", u.bucket),
		zap.String("key", key))
	return nil
}
