package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"inkdesk-backend/config"
	"inkdesk-backend/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ImageTypes are accepted for photos, headers and gallery items.
	ImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	// AttachmentTypes are accepted for chat attachments.
	AttachmentTypes = append(append([]string{}, ImageTypes...), "application/pdf")
)

// FileStore persists uploads and returns their public description.
type FileStore interface {
	Save(ctx context.Context, folder string, fh *multipart.FileHeader, allowed []string) (*models.Attachment, error)
	Delete(ctx context.Context, url string) error
}

// NewFileStore picks S3 when a bucket is configured, local disk otherwise.
func NewFileStore(ctx context.Context, cfg *config.Config) (FileStore, error) {
	if cfg.S3.Enabled() {
		return NewS3Store(ctx, cfg.S3, cfg.Uploads.MaxFileSize)
	}
	return NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.PublicPath, cfg.Uploads.MaxFileSize), nil
}

// inspectUpload enforces the size limit and sniffs the content type.
func inspectUpload(fh *multipart.FileHeader, maxSize int64, allowed []string) (*mimetype.MIME, error) {
	if fh.Size > maxSize {
		return nil, invalidf("file %s exceeds the %d MB limit", fh.Filename, maxSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	for _, a := range allowed {
		if mtype.Is(a) {
			return mtype, nil
		}
	}
	return nil, invalidf("file %s has unsupported type %s", fh.Filename, mtype.String())
}

func objectName(folder string, mtype *mimetype.MIME, now time.Time) string {
	return path.Join(folder, now.Format("2006/01"), uuid.NewString()+mtype.Extension())
}

// DiskStore writes uploads below root and serves them under publicPath.
type DiskStore struct {
	root       string
	publicPath string
	maxSize    int64
}

func NewDiskStore(root, publicPath string, maxSize int64) *DiskStore {
	return &DiskStore{root: root, publicPath: strings.TrimSuffix(publicPath, "/"), maxSize: maxSize}
}

func (s *DiskStore) Save(_ context.Context, folder string, fh *multipart.FileHeader, allowed []string) (*models.Attachment, error) {
	mtype, err := inspectUpload(fh, s.maxSize, allowed)
	if err != nil {
		return nil, err
	}

	name := objectName(folder, mtype, time.Now().UTC())
	dst := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &models.Attachment{
		URL:      s.publicPath + "/" + name,
		Name:     fh.Filename,
		MimeType: mtype.String(),
		Size:     fh.Size,
	}, nil
}

func (s *DiskStore) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.publicPath+"/")
	if !ok || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// S3Store keeps uploads in an S3 compatible bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	maxSize int64
}

func NewS3Store(ctx context.Context, cfg config.S3Config, maxSize int64) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: strings.TrimSuffix(baseURL, "/"), maxSize: maxSize}, nil
}

func (s *S3Store) Save(ctx context.Context, folder string, fh *multipart.FileHeader, allowed []string) (*models.Attachment, error) {
	mtype, err := inspectUpload(fh, s.maxSize, allowed)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	key := objectName(folder, mtype, time.Now().UTC())
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          src,
		ContentType:   aws.String(mtype.String()),
		ContentLength: aws.Int64(fh.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &models.Attachment{
		URL:      s.baseURL + "/" + key,
		Name:     fh.Filename,
		MimeType: mtype.String(),
		Size:     fh.Size,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
