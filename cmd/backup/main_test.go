package main

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

type fakeBucket struct {
	objects   []types.Object
	failOn    string
	deleted   []string
	listInput *s3.ListObjectsV2Input
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listInput = in
	return &s3.ListObjectsV2Output{Contents: f.objects}, nil
}

func (f *fakeBucket) PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.failOn {
		return nil, errors.New("access denied")
	}
	f.deleted = append(f.deleted, key)
	return &s3.DeleteObjectOutput{}, nil
}

func objectsByDay(days ...int) []types.Object {
	var out []types.Object
	for _, d := range days {
		ts := time.Date(2024, 6, d, 3, 0, 0, 0, time.UTC)
		out = append(out, types.Object{Key: aws.String(backupKey(ts)), LastModified: aws.Time(ts)})
	}
	return out
}

func TestExpiredBackups(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		days []int
		keep int
		want int
	}{
		{name: "under limit", days: []int{1, 2}, keep: 4, want: 0},
		{name: "exact limit", days: []int{1, 2, 3, 4}, keep: 4, want: 0},
		{name: "over limit", days: []int{3, 1, 6, 2, 5, 4}, keep: 4, want: 2},
		{name: "keep at least one", days: []int{1, 2, 3}, keep: 0, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := expiredBackups(objectsByDay(tt.days...), tt.keep)
			if len(got) != tt.want {
				t.Fatalf("len = %d, erwartet %d", len(got), tt.want)
			}
			for _, o := range got {
				if o.LastModified.Day() > tt.want {
					t.Errorf("neueres Backup %s als abgelaufen markiert", aws.ToString(o.Key))
				}
			}
		})
	}
}

func TestRotateBackupsSkipsFailedDeletes(t *testing.T) {
	t.Parallel()
	objs := objectsByDay(1, 2, 3, 4, 5, 6)
	fb := &fakeBucket{objects: objs, failOn: aws.ToString(objs[0].Key)}

	deleted, err := rotateBackups(t.Context(), fb, "bucket", 3, zap.NewNop())
	if err != nil {
		t.Fatalf("rotateBackups: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, erwartet 2", deleted)
	}
	want := []string{aws.ToString(objs[1].Key), aws.ToString(objs[2].Key)}
	sort.Strings(fb.deleted)
	if len(fb.deleted) != 2 || fb.deleted[0] != want[0] || fb.deleted[1] != want[1] {
		t.Errorf("gelöscht = %v, erwartet %v", fb.deleted, want)
	}
	if got := aws.ToString(fb.listInput.Prefix); got != backupPrefix {
		t.Errorf("Prefix = %q, erwartet %q", got, backupPrefix)
	}
}

func TestBackupConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{S3Bucket: "archive", S3URL: "https://s3.example", S3Key: "k", S3Secret: "s", S3Region: "eu-central-1"}
	b := BackupConfig{Bucket: "backups"}
	b.withDefaults(cfg)
	if b.Bucket != "backups" || b.Endpoint != "https://s3.example" || b.AccessKey != "k" || b.Region != "eu-central-1" {
		t.Errorf("unerwartete Konfiguration: %+v", b)
	}
}
