package utils

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
}

func (r *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	r.inputs = append(r.inputs, in)
	r.bodies = append(r.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchiveKey(t *testing.T) {
	at := time.Date(2026, 3, 14, 23, 30, 0, 0, time.FixedZone("CET", 3600))
	key := ArchiveKey("stripe", "checkout.session.completed", "evt_123", at)
	assert.Equal(t, "webhooks/stripe/2026/03/14/checkout-session-completed-evt_123.json", key)
}

func TestR2Archive_Archive(t *testing.T) {
	putter := &recordingPutter{}
	archive := &R2Archive{client: putter, bucket: "payments-audit"}

	key, err := archive.Archive(context.Background(), "stripe", "checkout.session.expired", "evt_9",
		time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), []byte(`{"id":"evt_9"}`))
	require.NoError(t, err)
	assert.Equal(t, "webhooks/stripe/2026/03/14/checkout-session-expired-evt_9.json", key)

	require.Len(t, putter.inputs, 1)
	assert.Equal(t, "payments-audit", aws.ToString(putter.inputs[0].Bucket))
	assert.Equal(t, key, aws.ToString(putter.inputs[0].Key))
	assert.Equal(t, "application/json", aws.ToString(putter.inputs[0].ContentType))
	assert.Equal(t, `{"id":"evt_9"}`, string(putter.bodies[0]))
}

func TestR2Config_Enabled(t *testing.T) {
	assert.False(t, R2Config{}.Enabled())
	assert.False(t, R2Config{Bucket: "b"}.Enabled())
	assert.True(t, R2Config{Bucket: "b", AccountID: "acc"}.Enabled())
}
