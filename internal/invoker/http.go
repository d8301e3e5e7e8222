package invoker

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/gojek/heimdall/v7"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/cirrus/internal/document"
	"github.com/yairfalse/cirrus/internal/query"
	"github.com/yairfalse/cirrus/pkg/cloud"
)

// Options configures the HTTP invoker.
type Options struct {
	Region string
	// Endpoint overrides https://<service>.<region>.amazonaws.com for every service.
	Endpoint string
	// Credentials signs requests. Nil sends unsigned requests.
	Credentials aws.CredentialsProvider

	Timeout    time.Duration
	Retries    int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// HTTP is a SigV4-signing Invoker over a retrying HTTP client. It is safe for
// concurrent use.
type HTTP struct {
	region   string
	endpoint string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   heimdall.Doer
	now      func() time.Time
}

// NewHTTP creates an HTTP invoker.
func NewHTTP(opts Options) (*HTTP, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("invoker: region required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.MaxBackoff < opts.Backoff {
		opts.MaxBackoff = opts.Backoff
	}

	jitter := max(opts.Backoff/2, time.Millisecond)
	backoff := heimdall.NewExponentialBackoff(opts.Backoff, opts.MaxBackoff, 2, jitter)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(opts.Timeout),
		httpclient.WithRetryCount(opts.Retries),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
	)

	return &HTTP{
		region:   opts.Region,
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		creds:    opts.Credentials,
		signer:   v4.NewSigner(),
		client:   client,
		now:      time.Now,
	}, nil
}

// LoadCredentials resolves credentials the way the AWS CLI does: static keys when
// given, otherwise the default chain for profile.
func LoadCredentials(ctx context.Context, region, profile, accessKeyID, secretAccessKey string) (aws.CredentialsProvider, error) {
	if accessKeyID != "" {
		return credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""), nil
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg.Credentials, nil
}

// URL returns the endpoint a service is reached at.
func (h *HTTP) URL(service string) string {
	if h.endpoint != "" {
		return h.endpoint + "/"
	}
	return fmt.Sprintf("https://%s.%s.amazonaws.com/", service, h.region)
}

// Invoke sends req and decodes the response body.
func (h *HTTP) Invoke(ctx context.Context, req Request) (*document.Document, error) {
	version, ok := apiVersions[req.Service]
	if !ok {
		return nil, fmt.Errorf("%w: unknown service %q", cloud.ErrInternal, req.Service)
	}

	params := append(query.Params{}, req.Params...)
	params = append(params, query.Param{Key: "Version", Value: version})
	body := []byte(params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL(req.Service), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	if err := h.sign(ctx, httpReq, req.Service, body); err != nil {
		return nil, h.requestError(req, err)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, h.requestError(req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, h.requestError(req, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode/100 != 2 {
		return nil, h.fault(req, resp, data)
	}

	doc, err := document.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Service, req.Action(), err)
	}
	return doc, nil
}

func (h *HTTP) sign(ctx context.Context, r *http.Request, service string, body []byte) error {
	if h.creds == nil {
		return nil
	}
	creds, err := h.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	sum := sha256.Sum256(body)
	if err := h.signer.SignHTTP(ctx, creds, r, hex.EncodeToString(sum[:]), service, h.region, h.now()); err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	return nil
}

func (h *HTTP) requestError(req Request, err error) error {
	return &cloud.CloudError{
		Service: req.Service,
		Action:  req.Action(),
		Code:    cloud.CodeRequestError,
		Err:     err,
	}
}

func (h *HTTP) fault(req Request, resp *http.Response, body []byte) error {
	cerr := &cloud.CloudError{
		Service:    req.Service,
		Action:     req.Action(),
		StatusCode: resp.StatusCode,
		Code:       fmt.Sprintf("HTTP%d", resp.StatusCode),
		Message:    http.StatusText(resp.StatusCode),
		RequestID:  resp.Header.Get("x-amzn-RequestId"),
	}

	doc, err := document.Parse(bytes.NewReader(body))
	if err != nil {
		log.Debug().
			Str("service", req.Service).
			Str("action", req.Action()).
			Int("status", resp.StatusCode).
			Msg("error response has no XML body")
		return cerr
	}
	if f, ok := doc.Fault(); ok {
		cerr.Code = f.Code
		cerr.Message = f.Message
		if f.RequestID != "" {
			cerr.RequestID = f.RequestID
		}
	}
	return cerr
}
