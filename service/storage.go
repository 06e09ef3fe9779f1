package service

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
)

// AudioStore persists synthesized audio payloads and returns the reference
// stored in the translation record. Uploads are best-effort: a failed upload
// costs the reference, never the cycle.
type AudioStore interface {
	PutAudio(ctx context.Context, objectName string, data []byte, contentType string) (string, error)
}

type minioAudioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioAudioStore(client *minio.Client, bucket string) AudioStore {
	return &minioAudioStore{
		client: client,
		bucket: bucket,
	}
}

func (s *minioAudioStore) PutAudio(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return objectName, nil
}
