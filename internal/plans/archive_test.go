package plans

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/nutri-agenda/pkg/logging"
)

type fakeS3 struct {
	puts []*s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, params)
	f.body, _ = io.ReadAll(params.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive_Put(t *testing.T) {
	api := &fakeS3{}
	archive := NewArchive(api, "nutri-plans", logging.New("error"))
	require.True(t, archive.Enabled())

	key, err := archive.Put(context.Background(), &ArchivedDraft{
		ID:        "d1",
		Prompt:    "plan para Ana",
		Plan:      "avena",
		DraftedAt: time.Date(2024, 3, 5, 22, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "plans/v1/by-date/2024/03/05/d1.json", key)

	require.Len(t, api.puts, 1)
	assert.Equal(t, "nutri-plans", aws.ToString(api.puts[0].Bucket))
	assert.Equal(t, "application/json", aws.ToString(api.puts[0].ContentType))

	var stored ArchivedDraft
	require.NoError(t, json.Unmarshal(api.body, &stored))
	assert.Equal(t, "avena", stored.Plan)
	assert.Equal(t, "plan para Ana", stored.Prompt)
}

func TestArchive_AssignsID(t *testing.T) {
	api := &fakeS3{}
	archive := NewArchive(api, "nutri-plans", nil)

	draft := &ArchivedDraft{Plan: "avena"}
	key, err := archive.Put(context.Background(), draft)
	require.NoError(t, err)
	assert.NotEmpty(t, draft.ID)
	assert.False(t, draft.DraftedAt.IsZero())
	assert.Contains(t, key, draft.ID)
}

func TestArchive_Disabled(t *testing.T) {
	api := &fakeS3{}
	archive := NewArchive(api, "", nil)
	assert.False(t, archive.Enabled())

	key, err := archive.Put(context.Background(), &ArchivedDraft{Plan: "avena"})
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, api.puts)
}

func TestArchive_PutError(t *testing.T) {
	archive := NewArchive(&fakeS3{err: errors.New("access denied")}, "nutri-plans", nil)
	_, err := archive.Put(context.Background(), &ArchivedDraft{Plan: "avena"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
