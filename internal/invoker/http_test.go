package invoker

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

const okBody = `<DescribeAddressesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>f7de5e98-491a-4c19-a92d-908d6EXAMPLE</requestId>
  <addressesSet/>
</DescribeAddressesResponse>`

func newTestInvoker(t *testing.T, endpoint string, retries int) *HTTP {
	t.Helper()
	h, err := NewHTTP(Options{
		Region:      "us-west-2",
		Endpoint:    endpoint,
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "SECRET", ""),
		Timeout:     2 * time.Second,
		Retries:     retries,
		Backoff:     time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	})
	require.NoError(t, err)
	return h
}

func TestHTTP_SignedFormPost(t *testing.T) {
	var (
		gotForm url.Values
		gotAuth string
		gotCT   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	h := newTestInvoker(t, srv.URL, 0)
	doc, err := h.Invoke(context.Background(), Request{
		Service: ServiceEC2,
		Params:  query.New("DescribeAddresses").List("AllocationId", []string{"eipalloc-08229861"}).Params(),
	})
	require.NoError(t, err)

	assert.Equal(t, "f7de5e98-491a-4c19-a92d-908d6EXAMPLE", doc.Text("requestId"))
	assert.Equal(t, "DescribeAddresses", gotForm.Get("Action"))
	assert.Equal(t, "2016-11-15", gotForm.Get("Version"))
	assert.Equal(t, "eipalloc-08229861", gotForm.Get("AllocationId.1"))
	assert.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/"), gotAuth)
	assert.Contains(t, gotAuth, "/us-west-2/ec2/aws4_request")
	assert.True(t, strings.HasPrefix(gotCT, "application/x-www-form-urlencoded"))
}

func TestHTTP_AutoScalingVersion(t *testing.T) {
	var version string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		version = r.PostForm.Get("Version")
		_, _ = io.WriteString(w, `<DescribeAutoScalingGroupsResponse/>`)
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, 0).Invoke(context.Background(), Request{
		Service: ServiceAutoScaling,
		Params:  query.New("DescribeAutoScalingGroups").Params(),
	})
	require.NoError(t, err)
	assert.Equal(t, "2011-01-01", version)
}

func TestHTTP_FaultDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `<Response><Errors><Error><Code>InvalidInstanceID.Malformed</Code>`+
			`<Message>Invalid id: "bogus"</Message></Error></Errors><RequestID>req-42</RequestID></Response>`)
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, 2).Invoke(context.Background(), Request{
		Service: ServiceEC2,
		Params:  query.New("DescribeInstances").List("InstanceId", []string{"bogus"}).Params(),
	})
	require.Error(t, err)

	var cerr *cloud.CloudError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "InvalidInstanceID.Malformed", cerr.Code)
	assert.Equal(t, `Invalid id: "bogus"`, cerr.Message)
	assert.Equal(t, "req-42", cerr.RequestID)
	assert.Equal(t, http.StatusBadRequest, cerr.StatusCode)
	assert.Equal(t, "DescribeInstances", cerr.Action)
}

func TestHTTP_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, 3).Invoke(context.Background(), Request{
		Service: ServiceEC2,
		Params:  query.New("DescribeAddresses").Params(),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTP_ServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, 0).Invoke(context.Background(), Request{
		Service: ServiceEC2,
		Params:  query.New("DescribeAddresses").Params(),
	})

	var cerr *cloud.CloudError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "HTTP503", cerr.Code)
}

func TestHTTP_MalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<DescribeAddressesResponse><")
	}))
	defer srv.Close()

	_, err := newTestInvoker(t, srv.URL, 0).Invoke(context.Background(), Request{
		Service: ServiceEC2,
		Params:  query.New("DescribeAddresses").Params(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrInternal)
}

func TestHTTP_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := newTestInvoker(t, endpoint, 0).Invoke(context.Background(), Request{
		Service: ServiceEC2,
		Params:  query.New("DescribeAddresses").Params(),
	})

	var cerr *cloud.CloudError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cloud.CodeRequestError, cerr.Code)
}

func TestHTTP_UnknownService(t *testing.T) {
	_, err := newTestInvoker(t, "http://127.0.0.1:1", 0).Invoke(context.Background(), Request{
		Service: "sqs",
		Params:  query.New("ListQueues").Params(),
	})
	assert.ErrorIs(t, err, cloud.ErrInternal)
}

func TestHTTP_URL(t *testing.T) {
	h, err := NewHTTP(Options{Region: "eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://ec2.eu-west-1.amazonaws.com/", h.URL(ServiceEC2))
	assert.Equal(t, "https://autoscaling.eu-west-1.amazonaws.com/", h.URL(ServiceAutoScaling))

	_, err = NewHTTP(Options{})
	assert.Error(t, err)
}

func TestLoadCredentials_Static(t *testing.T) {
	provider, err := LoadCredentials(context.Background(), "us-east-1", "", "AKID", "SECRET")
	require.NoError(t, err)

	creds, err := provider.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
	assert.Equal(t, "SECRET", creds.SecretAccessKey)
}
