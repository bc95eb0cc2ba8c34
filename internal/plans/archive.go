package plans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

// S3API is the subset of the S3 client used by Archive.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchivedDraft is the JSON document written for every drafted plan.
type ArchivedDraft struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	Plan        string     `json:"plan"`
	Provider    string     `json:"provider,omitempty"`
	StopReason  string     `json:"stopReason,omitempty"`
	Usage       TokenUsage `json:"usage"`
	MaxTokens   int32      `json:"maxTokens"`
	Temperature float32    `json:"temperature"`
	DraftedAt   time.Time  `json:"draftedAt"`
}

// Archive keeps a copy of drafted plans in S3.
type Archive struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewArchive creates an archive. If bucket is empty, all operations are no-ops.
func NewArchive(s3Client S3API, bucket string, logger *logging.Logger) *Archive {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archive{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled returns true if archival is configured (bucket is set).
func (a *Archive) Enabled() bool {
	return a != nil && a.bucket != "" && a.s3Client != nil
}

// Put writes the draft under plans/v1/by-date/YYYY/MM/DD/<id>.json and returns the key.
func (a *Archive) Put(ctx context.Context, draft *ArchivedDraft) (string, error) {
	if !a.Enabled() {
		return "", nil
	}
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}
	if draft.DraftedAt.IsZero() {
		draft.DraftedAt = time.Now().UTC()
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("plans: marshal archived draft: %w", err)
	}

	at := draft.DraftedAt.UTC()
	key := fmt.Sprintf("plans/v1/by-date/%d/%02d/%02d/%s.json", at.Year(), at.Month(), at.Day(), draft.ID)
	_, err = a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("plans: s3 put %s: %w", key, err)
	}

	a.logger.Info("archived plan draft to S3", "draft_id", draft.ID, "s3_key", key)
	return key, nil
}
