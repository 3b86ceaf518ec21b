package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/classboard/board-stream/internal/domain"
)

type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	region   string
}

func NewS3Store(ctx context.Context, region, bucket string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		region:   region,
	}, nil
}

// Upload stores the attachment and returns its public URL. Images also get
// a 320px thumbnail side-uploaded under "<key>_thumb.jpg"; a thumbnail
// failure does not fail the upload.
func (s *S3Store) Upload(ctx context.Context, att domain.PendingAttachment) (string, error) {
	key := uuid.NewString() + "_" + att.Name
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(att.Data),
		ContentType: aws.String(att.ContentType),
	})
	if err != nil {
		return "", err
	}

	if att.Kind == domain.KindImage {
		if thumb, err := thumbnail(att.Data); err == nil {
			_, _ = s.uploader.Upload(ctx, &s3.PutObjectInput{
				Bucket:      aws.String(s.bucket),
				Key:         aws.String(key + "_thumb.jpg"),
				Body:        bytes.NewReader(thumb),
				ContentType: aws.String("image/jpeg"),
			})
		}
	}

	escaped := url.PathEscape(key)
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped), nil
}

func thumbnail(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, 320, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
