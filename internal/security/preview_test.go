package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const previewSecret = "preview-secret-preview-secret-00"

func TestPreviewCodecRoundTrip(t *testing.T) {
	codec := NewPreviewCodec(previewSecret)

	token, err := codec.Sign("post-42", "editor@example.com", 300)
	require.NoError(t, err)
	require.NotContains(t, token, "+")
	require.NotContains(t, token, "/")

	claims, err := codec.Verify(token, "post-42")
	require.NoError(t, err)
	require.Equal(t, "post-42", claims.ResourceID)
	require.Equal(t, "editor@example.com", claims.Subject)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestPreviewCodecAlreadyExpiredIsExpiredNotInvalid(t *testing.T) {
	codec := NewPreviewCodec(previewSecret)

	token, err := codec.Sign("post-42", "editor@example.com", -60)
	require.NoError(t, err)

	_, err = codec.Verify(token, "post-42")
	require.ErrorIs(t, err, ErrPreviewExpired)
	require.NotErrorIs(t, err, ErrPreviewInvalidSignature)

	_, err = codec.Verify(token, "another-post")
	require.ErrorIs(t, err, ErrPreviewExpired)
}

func TestPreviewCodecResourceMismatch(t *testing.T) {
	codec := NewPreviewCodec(previewSecret)

	token, err := codec.Sign("video-1", "editor@example.com", 60)
	require.NoError(t, err)

	_, err = codec.Verify(token, "video-2")
	require.ErrorIs(t, err, ErrPreviewResourceMismatch)
}

func TestPreviewCodecRejectsForeignSignature(t *testing.T) {
	token, err := NewPreviewCodec("another-secret-another-secret-00").Sign("post-1", "x", 60)
	require.NoError(t, err)

	_, err = NewPreviewCodec(previewSecret).Verify(token, "post-1")
	require.ErrorIs(t, err, ErrPreviewInvalidSignature)
}

func TestPreviewCodecRejectsTamperedPayload(t *testing.T) {
	codec := NewPreviewCodec(previewSecret)
	token, err := codec.Sign("post-1", "x", 60)
	require.NoError(t, err)

	forged, err := codec.Sign("post-2", "x", 60)
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := strings.Join([]string{parts[0], forgedParts[1], parts[2]}, ".")

	_, err = codec.Verify(spliced, "post-2")
	require.ErrorIs(t, err, ErrPreviewInvalidSignature)
}

func TestPreviewCodecMalformed(t *testing.T) {
	codec := NewPreviewCodec(previewSecret)
	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := codec.Verify(token, "post-1")
		require.ErrorIs(t, err, ErrPreviewMalformed, "token %q", token)
	}
}

func TestPreviewCodecClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	signer := NewPreviewCodec(previewSecret).WithClock(func() time.Time { return base })
	token, err := signer.Sign("post-1", "x", 60)
	require.NoError(t, err)

	_, err = signer.WithClock(func() time.Time { return base.Add(30 * time.Second) }).Verify(token, "post-1")
	require.NoError(t, err)
	_, err = signer.WithClock(func() time.Time { return base.Add(2 * time.Minute) }).Verify(token, "post-1")
	require.ErrorIs(t, err, ErrPreviewExpired)
}

func TestPreviewCodecWithoutSecret(t *testing.T) {
	codec := NewPreviewCodec("")
	require.False(t, codec.Configured())

	_, err := codec.Sign("post-1", "x", 60)
	require.ErrorIs(t, err, ErrPreviewSecretNotConfigured)
	_, err = codec.Verify("a.b.c", "post-1")
	require.ErrorIs(t, err, ErrPreviewSecretNotConfigured)
}

func TestPreviewLink(t *testing.T) {
	link := PreviewLink("https://cms.example.com/", "my post", "abc.def-ghi")
	require.Equal(t, "https://cms.example.com/preview/my%20post?token=abc.def-ghi", link)
}
