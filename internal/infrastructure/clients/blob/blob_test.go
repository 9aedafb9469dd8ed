package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/zatekoja/facilitycollector/pkg/errors"
)

func TestFSStore_Open(t *testing.T) {
	store := NewFSStoreFrom(fstest.MapFS{
		"lists/websites.csv": {Data: []byte("id,url\nvha_402,https://www.maine.va.gov\n")},
	})

	rc, err := store.Open(context.Background(), "lists/websites.csv")
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Contains(t, string(body), "vha_402")

	_, err = store.Open(context.Background(), "lists/missing.csv")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = store.Open(context.Background(), "../etc/passwd")
	assert.True(t, apperrors.IsValidation(err))
}

// objectsTransport answers path-style GetObject requests from a map.
type objectsTransport struct {
	objects map[string]string
	paths   []string
}

func (o *objectsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	o.paths = append(o.paths, req.URL.Path)
	body, ok := o.objects[req.URL.Path]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{"Content-Type": []string{"application/xml"}},
			Body:       io.NopCloser(strings.NewReader(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)),
			Request:    req,
		}, nil
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{"Content-Type": []string{"text/csv"}},
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: int64(len(body)),
		Request:       req,
	}, nil
}

func mockS3(rt http.RoundTripper) *s3.Client {
	return s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("https://mock.s3.local"),
		UsePathStyle: true,
		HTTPClient:   &http.Client{Transport: rt},
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "AKIA", SecretAccessKey: "SECRET"}, nil
		}),
	})
}

func TestS3Store_Open(t *testing.T) {
	rt := &objectsTransport{objects: map[string]string{
		"/lists-bucket/static/orthopedics.csv": "id\nvha_402\n",
	}}
	store := NewS3StoreFromClient(mockS3(rt), "lists-bucket", "/static/")

	rc, err := store.Open(context.Background(), "orthopedics.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "id\nvha_402\n", string(body))

	_, err = store.Open(context.Background(), "absent.csv")
	assert.True(t, apperrors.IsNotFound(err))
}
