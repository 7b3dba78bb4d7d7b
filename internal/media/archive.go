// Package media archives issue attachments to object storage. Attachments
// stay inline on the issue record for API compatibility; the archive copy is
// written fire-and-forget so object storage outages never block reporting.
package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to MinIO and ensures the attachment bucket exists.
func NewArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &Archive{client: client, bucket: bucket}, nil
}

// StoreIssueAttachments uploads the issue's image and voice payloads under
// keys derived from the issue id. Called in a goroutine; failures are logged
// and dropped.
func (a *Archive) StoreIssueAttachments(ctx context.Context, issueID string, imageBase64, voiceBase64 *string) {
	if imageBase64 != nil && *imageBase64 != "" {
		a.put(ctx, issueID+"/image", *imageBase64, "image/jpeg")
	}
	if voiceBase64 != nil && *voiceBase64 != "" {
		a.put(ctx, issueID+"/voice", *voiceBase64, "audio/mpeg")
	}
}

func (a *Archive) put(ctx context.Context, key, payloadBase64, contentType string) {
	data, err := base64.StdEncoding.DecodeString(payloadBase64)
	if err != nil {
		log.Printf("media: skip %s, payload is not valid base64: %v", key, err)
		return
	}
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Printf("media: archive %s: %v", key, err)
	}
}
