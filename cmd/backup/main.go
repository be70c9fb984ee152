// Command backup sichert die Datenbank per pg_dump gzip-komprimiert in einen
// S3-Bucket und behält nur die neuesten KEEP_BACKUPS Sicherungen.
package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/storage"
)

const backupPrefix = "backups/"

// BackupConfig ergänzt die Datenbankeinstellungen um das Sicherungsziel.
// Leere Felder fallen auf die S3_* Werte des Archivs zurück.
type BackupConfig struct {
	Bucket      string `envconfig:"BACKUP_S3_BUCKET"`
	Endpoint    string `envconfig:"BACKUP_S3_ENDPOINT"`
	AccessKey   string `envconfig:"BACKUP_S3_ACCESS_KEY"`
	SecretKey   string `envconfig:"BACKUP_S3_SECRET_KEY"`
	Region      string `envconfig:"BACKUP_S3_REGION"`
	KeepBackups int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func (b *BackupConfig) withDefaults(cfg *config.Config) {
	if b.Bucket == "" {
		b.Bucket = cfg.S3Bucket
	}
	if b.Endpoint == "" {
		b.Endpoint = cfg.S3URL
	}
	if b.AccessKey == "" {
		b.AccessKey = cfg.S3Key
	}
	if b.SecretKey == "" {
		b.SecretKey = cfg.S3Secret
	}
	if b.Region == "" {
		b.Region = cfg.S3Region
	}
}

// bucketAPI ist der Ausschnitt des S3-Clients, den das Backup braucht.
type bucketAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("Backup fehlgeschlagen", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	logger.Info("Starte Backup-Prozess...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("Fehler beim Laden der Konfiguration: %w", err)
	}
	var bcfg BackupConfig
	if err := envconfig.Process("", &bcfg); err != nil {
		return fmt.Errorf("Fehler beim Laden der Backup-Konfiguration: %w", err)
	}
	bcfg.withDefaults(cfg)
	if bcfg.Bucket == "" {
		return fmt.Errorf("kein Backup-Bucket konfiguriert (BACKUP_S3_BUCKET oder S3_BUCKET)")
	}

	dump, err := createDump(ctx, cfg)
	if err != nil {
		return fmt.Errorf("Fehler beim Erstellen des DB-Dumps: %w", err)
	}

	client, err := storage.NewS3Client(ctx, storage.S3Options{
		Endpoint: bcfg.Endpoint,
		Region:   bcfg.Region,
		Key:      bcfg.AccessKey,
		Secret:   bcfg.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("Fehler beim Erstellen des S3-Clients: %w", err)
	}

	key := backupKey(time.Now())
	if _, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bcfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(dump),
		ContentType: aws.String("application/gzip"),
	}); err != nil {
		return fmt.Errorf("Fehler beim Hochladen nach S3: %w", err)
	}
	logger.Info("Backup hochgeladen", zap.String("bucket", bcfg.Bucket), zap.String("key", key), zap.Int("bytes", len(dump)))

	deleted, err := rotateBackups(ctx, client, bcfg.Bucket, bcfg.KeepBackups, logger)
	if err != nil {
		return fmt.Errorf("Fehler bei der Rotation alter Backups: %w", err)
	}
	logger.Info("Backup-Prozess erfolgreich abgeschlossen.", zap.Int("rotated", deleted))
	return nil
}

func backupKey(now time.Time) string {
	return fmt.Sprintf("%sbackup-%s.sql.gz", backupPrefix, now.UTC().Format("2006-01-02T15-04-05Z"))
}

func createDump(ctx context.Context, cfg *config.Config) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w",
	)
	// Passwort nur über die Umgebung, nie auf der Kommandozeile
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := io.Copy(gz, stdout); err != nil {
		_ = cmd.Wait()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		_ = cmd.Wait()
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("pg_dump: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return buf.Bytes(), nil
}

// rotateBackups löscht alle Sicherungen unter backups/ außer den keep neuesten.
// Einzelne Löschfehler werden geloggt und brechen die Rotation nicht ab.
func rotateBackups(ctx context.Context, client bucketAPI, bucket string, keep int, logger *zap.Logger) (int, error) {
	var objects []types.Object
	p := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(backupPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		objects = append(objects, page.Contents...)
	}

	expired := expiredBackups(objects, keep)
	if len(expired) == 0 {
		logger.Info("Keine Rotation nötig.", zap.Int("backups", len(objects)), zap.Int("keep", keep))
		return 0, nil
	}

	deleted := 0
	for _, obj := range expired {
		logger.Info("Lösche altes Backup", zap.String("key", aws.ToString(obj.Key)))
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    obj.Key,
		}); err != nil {
			logger.Error("Fehler beim Löschen", zap.String("key", aws.ToString(obj.Key)), zap.Error(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

// expiredBackups sortiert nach LastModified absteigend und liefert alles nach den keep neuesten.
func expiredBackups(objects []types.Object, keep int) []types.Object {
	if keep < 1 {
		keep = 1
	}
	if len(objects) <= keep {
		return nil
	}
	sorted := append([]types.Object(nil), objects...)
	sort.Slice(sorted, func(i, j int) bool {
		return aws.ToTime(sorted[i].LastModified).After(aws.ToTime(sorted[j].LastModified))
	})
	return sorted[keep:]
}
