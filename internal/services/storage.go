package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"go.uber.org/zap"
)

// MaxPhotoSize bounds incident photo uploads.
const MaxPhotoSize = 10 << 20

var ErrUnsupportedImage = errors.New("only jpeg, png and webp images are accepted")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// StorageConfig selects S3 when all AWS fields are set, local disk otherwise.
type StorageConfig struct {
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string
	Bucket       string
	UploadDir    string
	BaseURL      string
}

func (c StorageConfig) s3Configured() bool {
	return c.AWSRegion != "" && c.AWSAccessKey != "" && c.AWSSecretKey != "" && c.Bucket != ""
}

// Storage keeps incident photos in S3 or under a local upload directory
// served at /uploads.
type Storage struct {
	cfg      StorageConfig
	uploader s3manageriface.UploaderAPI
	now      func() time.Time
	log      *zap.Logger
}

func NewStorage(cfg StorageConfig, log *zap.Logger) (*Storage, error) {
	s := &Storage{cfg: cfg, now: time.Now, log: log}

	if cfg.s3Configured() {
		sess, err := session.NewSession(&aws.Config{
			Region:      aws.String(cfg.AWSRegion),
			Credentials: credentials.NewStaticCredentials(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		})
		if err != nil {
			return nil, fmt.Errorf("creating AWS session: %w", err)
		}
		s.uploader = s3manager.NewUploader(sess)
		log.Info("photo storage on S3", zap.String("bucket", cfg.Bucket))
		return s, nil
	}

	if s.cfg.UploadDir == "" {
		s.cfg.UploadDir = "uploads"
	}
	if err := os.MkdirAll(filepath.Join(s.cfg.UploadDir, "incidents"), 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	log.Warn("AWS S3 not configured, storing photos on local disk", zap.String("dir", s.cfg.UploadDir))
	return s, nil
}

// UsingS3 reports whether uploads go to the bucket.
func (s *Storage) UsingS3() bool {
	return s.uploader != nil
}

// UploadDir is the local directory to serve at /uploads.
func (s *Storage) UploadDir() string {
	return s.cfg.UploadDir
}

// UploadImage stores the file under folder and returns its public URL.
func (s *Storage) UploadImage(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	if file.Size > MaxPhotoSize {
		return "", fmt.Errorf("image exceeds %d bytes", MaxPhotoSize)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(src, MaxPhotoSize+1)); err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if buf.Len() > MaxPhotoSize {
		return "", fmt.Errorf("image exceeds %d bytes", MaxPhotoSize)
	}

	contentType := http.DetectContentType(buf.Bytes())
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedImage
	}
	name := fmt.Sprintf("%d%s", s.now().UnixNano(), ext)

	if s.UsingS3() {
		return s.uploadToS3(ctx, buf.Bytes(), path.Join(folder, name), contentType)
	}
	return s.uploadLocally(buf.Bytes(), folder, name)
}

func (s *Storage) uploadToS3(ctx context.Context, data []byte, key, contentType string) (string, error) {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading to S3: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.AWSRegion, key), nil
}

func (s *Storage) uploadLocally(data []byte, folder, name string) (string, error) {
	dir := filepath.Join(s.cfg.UploadDir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating folder: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("saving file: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s/%s", strings.TrimRight(s.cfg.BaseURL, "/"), folder, name), nil
}
