package keys

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/domain"
	"github.com/Skotchmaster/auth_service/internal/jwks"
)

var testPEM, _, _ = Generate(2048)

type flakySource struct {
	calls int
	fail  bool
	data  []byte
}

func (s *flakySource) Load(context.Context) ([]byte, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("disk on fire")
	}
	return s.data, nil
}

type fakeS3 struct {
	body  []byte
	err   error
	input *s3.GetObjectInput
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestGenerate_ProducesParsablePair(t *testing.T) {
	priv, pub, err := Generate(2048)
	require.NoError(t, err)

	key, err := jwt.ParseRSAPrivateKeyFromPEM(priv)
	require.NoError(t, err)
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pub)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pubKey))
	assert.Equal(t, 2048, key.N.BitLen())
}

func TestProvider_FileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "privateKey.pem")
	require.NoError(t, os.WriteFile(path, testPEM, 0o600))

	p := NewProvider(FileSource{Path: path})
	key, err := p.SigningKey(context.Background())
	require.NoError(t, err)
	require.NotNil(t, key)

	kid, err := p.KeyID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jwks.Thumbprint(&key.PublicKey), kid)

	set, err := p.PublicSet(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, kid, set.Keys[0].Kid)
	pub, err := set.Keys[0].RSA()
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
}

func TestProvider_MissingFileIsKeyUnavailable(t *testing.T) {
	p := NewProvider(FileSource{Path: filepath.Join(t.TempDir(), "nope.pem")})
	_, err := p.SigningKey(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrKeyUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProvider_GarbageIsKeyUnavailable(t *testing.T) {
	p := NewProvider(&flakySource{data: []byte("not a pem")})
	_, err := p.SigningKey(context.Background())
	assert.ErrorIs(t, err, domain.ErrKeyUnavailable)
}

func TestProvider_CachesSuccessRetriesFailure(t *testing.T) {
	src := &flakySource{fail: true, data: testPEM}
	p := NewProvider(src)

	_, err := p.SigningKey(context.Background())
	require.ErrorIs(t, err, domain.ErrKeyUnavailable)

	src.fail = false
	for i := 0; i < 3; i++ {
		_, err = p.SigningKey(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, src.calls)
}

func TestS3Source(t *testing.T) {
	fake := &fakeS3{body: testPEM}
	p := NewProvider(S3Source{Client: fake, Bucket: "keys", Key: "auth/privateKey.pem"})

	_, err := p.SigningKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "keys", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "auth/privateKey.pem", aws.ToString(fake.input.Key))

	broken := NewProvider(S3Source{Client: &fakeS3{err: errors.New("access denied")}, Bucket: "b", Key: "k"})
	_, err = broken.SigningKey(context.Background())
	assert.ErrorIs(t, err, domain.ErrKeyUnavailable)
	assert.Contains(t, err.Error(), "s3://b/k")
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		key    string
		ok     bool
	}{
		{uri: "s3://keys/auth/privateKey.pem", bucket: "keys", key: "auth/privateKey.pem", ok: true},
		{uri: "s3://keys", ok: false},
		{uri: "s3:///key", ok: false},
		{uri: "certs/privateKey.pem", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			b, k, ok := ParseS3URI(tt.uri)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, b)
			assert.Equal(t, tt.key, k)
		})
	}
}

func TestSourceFromURI(t *testing.T) {
	src, err := SourceFromURI(context.Background(), "certs/privateKey.pem", S3Options{})
	require.NoError(t, err)
	assert.Equal(t, FileSource{Path: "certs/privateKey.pem"}, src)

	_, err = SourceFromURI(context.Background(), "s3://only-bucket", S3Options{})
	assert.Error(t, err)

	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	var lo config.LoadOptions
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{Region: lo.Region}, nil
	}

	src, err = SourceFromURI(context.Background(), "s3://keys/auth.pem", S3Options{
		Region: "eu-central-1", Endpoint: "http://minio:9000", AccessKey: "ak", SecretKey: "sk",
	})
	require.NoError(t, err)
	s3src, ok := src.(S3Source)
	require.True(t, ok)
	assert.Equal(t, "keys", s3src.Bucket)
	assert.Equal(t, "auth.pem", s3src.Key)
	assert.Equal(t, "eu-central-1", lo.Region)
	assert.NotNil(t, lo.Credentials)

	loadDefaultAWSConfig = func(context.Context, ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no creds")
	}
	_, err = SourceFromURI(context.Background(), "s3://keys/auth.pem", S3Options{})
	assert.Error(t, err)
}
