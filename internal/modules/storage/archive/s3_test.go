package archive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcfg "github.com/syllabind/core/internal/config"
)

func completeS3Config() appcfg.S3Config {
	return appcfg.S3Config{
		Enabled:         true,
		Bucket:          "syllabi",
		Region:          "us-east-1",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
	}
}

func TestNewS3UploaderRequiresCredentials(t *testing.T) {
	cfg := completeS3Config()
	cfg.SecretAccessKey = ""
	_, err := newS3Uploader(cfg)
	assert.ErrorContains(t, err, "incomplete s3 config")
}

func TestNewS3UploaderDefaultEndpoint(t *testing.T) {
	u, err := newS3Uploader(completeS3Config())
	require.NoError(t, err)
	assert.Equal(t, "s3.us-east-1.amazonaws.com", u.endpoint.Host)
	assert.False(t, u.pathStyle)

	requestURL, canonicalURI, host, err := u.buildTarget("archives/a.zip")
	require.NoError(t, err)
	assert.Equal(t, "syllabi.s3.us-east-1.amazonaws.com", host)
	assert.Equal(t, "/archives/a.zip", canonicalURI)
	assert.Equal(t, "https://syllabi.s3.us-east-1.amazonaws.com/archives/a.zip", requestURL)
}

func TestNewS3UploaderCustomEndpointForcesPathStyle(t *testing.T) {
	cfg := completeS3Config()
	cfg.Endpoint = "http://minio.local:9000"
	u, err := newS3Uploader(cfg)
	require.NoError(t, err)
	assert.True(t, u.pathStyle)

	requestURL, canonicalURI, host, err := u.buildTarget("archives/a.zip")
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", host)
	assert.Equal(t, "/syllabi/archives/a.zip", canonicalURI)
	assert.Equal(t, "http://minio.local:9000/syllabi/archives/a.zip", requestURL)
}

func TestNewS3UploaderBareHostGetsScheme(t *testing.T) {
	cfg := completeS3Config()
	cfg.Endpoint = "storage.example.com"
	u, err := newS3Uploader(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https", u.endpoint.Scheme)
	assert.Equal(t, "storage.example.com", u.endpoint.Host)
}

func TestRenderObjectKey(t *testing.T) {
	now := time.Date(2026, 3, 7, 14, 5, 9, 0, time.UTC)

	key := renderObjectKey("archives/{Y}/{m}/{filename}", "archive-x.zip", now)
	assert.Equal(t, "archives/2026/03/archive-x.zip", key)

	key = renderObjectKey("", "archive-x.zip", now)
	assert.Equal(t, "archives/2026/03/archive-x.zip", key)

	key = renderObjectKey("{Y}{m}{d}-{H}{M}{s}/{filename}", "a.zip", now)
	assert.Equal(t, "20260307-140509/a.zip", key)

	key = renderObjectKey("//weird\\path//{filename}", "a.zip", now)
	assert.Equal(t, "weird/path/a.zip", key)
}

func TestEncodeObjectKey(t *testing.T) {
	assert.Equal(t, "a/b%20c.zip", encodeObjectKey("/a//b c.zip"))
}

func TestJoinURLPath(t *testing.T) {
	assert.Equal(t, "/bucket/a/b.zip", joinURLPath("", "bucket", "a/b.zip"))
	assert.Equal(t, "/", joinURLPath("", ""))
}
