package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

// S3Options beschreibt einen S3-kompatiblen Endpunkt (AWS, MinIO, Strato HiDrive).
type S3Options struct {
	Endpoint string
	Region   string
	Key      string
	Secret   string
}

// NewS3Client erstellt einen S3-Client mit statischen Zugangsdaten und Path-Style-Adressierung.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(opts.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.Key, opts.Secret, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

// ObjectPutter ist der Teil des S3-Clients, den das Archiv benötigt.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive legt Rohdaten (z.B. LLM-Antworten) in einem Bucket ab.
type Archive struct {
	client ObjectPutter
	bucket string
}

// NewArchive erstellt ein Archiv über einen bestehenden Client.
func NewArchive(client ObjectPutter, bucket string) *Archive {
	return &Archive{client: client, bucket: bucket}
}

// OpenArchive baut das Archiv aus der Konfiguration. Ohne Bucket gibt es nil zurück.
func OpenArchive(ctx context.Context, cfg *config.Config) (*Archive, error) {
	if !cfg.ArchiveEnabled() {
		return nil, nil
	}
	client, err := NewS3Client(ctx, S3Options{
		Endpoint: cfg.S3URL,
		Region:   cfg.S3Region,
		Key:      cfg.S3Key,
		Secret:   cfg.S3Secret,
	})
	if err != nil {
		return nil, fmt.Errorf("s3-client: %w", err)
	}
	return NewArchive(client, cfg.S3Bucket), nil
}

// Put lädt body unter key hoch.
func (a *Archive) Put(ctx context.Context, key string, body []byte) error {
	if a == nil || a.client == nil {
		return errors.New("archiv ist nicht konfiguriert")
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}
