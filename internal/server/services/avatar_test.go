package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/dmitrijs2005/boilerbudget/internal/server/config"
)

func newAvatarStore() *S3AvatarStore {
	return NewS3AvatarStore(&sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "avatars",
	})
}

// stubAWS replaces the S3 seams for the duration of the test.
func stubAWS(t *testing.T) {
	t.Helper()
	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := presignPutObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				return aws.Config{}, err
			}
		}
		if lo.Region != "us-east-1" {
			return aws.Config{}, errors.New("region not applied")
		}
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		if opts.BaseEndpoint == nil || *opts.BaseEndpoint != "http://127.0.0.1:9000" || !opts.UsePathStyle {
			t.Fatalf("s3 options not applied: %+v", opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestNewS3AvatarStore_DefaultValidity(t *testing.T) {
	assert.Equal(t, 15*time.Minute, newAvatarStore().validity)
	assert.Equal(t, time.Minute, NewS3AvatarStore(&sc.Config{AvatarURLValidity: time.Minute}).validity)
}

func TestAvatarStorageKey(t *testing.T) {
	k1, k2 := AvatarStorageKey("u1"), AvatarStorageKey("u1")
	assert.True(t, strings.HasPrefix(k1, "avatars/u1/"))
	assert.NotEqual(t, k1, k2)
}

func TestS3AvatarStore_PresignPut(t *testing.T) {
	stubAWS(t)
	var gotBucket, gotKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = *in.Bucket, *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://put.example/" + *in.Key}, nil
	}

	key, url, err := newAvatarStore().PresignPut(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "avatars", gotBucket)
	assert.Equal(t, gotKey, key)
	assert.Equal(t, "https://put.example/"+key, url)
}

func TestS3AvatarStore_PresignGet(t *testing.T) {
	stubAWS(t)
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://get.example/" + *in.Key}, nil
	}

	url, err := newAvatarStore().PresignGet(context.Background(), "avatars/u1/x")
	require.NoError(t, err)
	assert.Equal(t, "https://get.example/avatars/u1/x", url)
}

func TestS3AvatarStore_Errors(t *testing.T) {
	stubAWS(t)
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-put-fail")
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-get-fail")
	}

	store := newAvatarStore()
	_, _, err := store.PresignPut(context.Background(), "u1")
	assert.EqualError(t, err, "presign-put-fail")

	_, err = store.PresignGet(context.Background(), "k")
	assert.EqualError(t, err, "presign-get-fail")

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, _, err = store.PresignPut(context.Background(), "u1")
	assert.EqualError(t, err, "load-fail")
	_, err = store.PresignGet(context.Background(), "k")
	assert.EqualError(t, err, "load-fail")
}
