// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hashicorp/errwrap"
	cleanhttp "github.com/hashicorp/go-cleanhttp"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	rootcerts "github.com/hashicorp/go-rootcerts"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/hashicorp/go-uuid"
	"golang.org/x/time/rate"
)

const (
	EnvBenefitsAddr          = "BENEFITS_ADDR"
	EnvBenefitsCACert        = "BENEFITS_CACERT"
	EnvBenefitsCAPath        = "BENEFITS_CAPATH"
	EnvBenefitsClientCert    = "BENEFITS_CLIENT_CERT"
	EnvBenefitsClientKey     = "BENEFITS_CLIENT_KEY"
	EnvBenefitsClientTimeout = "BENEFITS_CLIENT_TIMEOUT"
	EnvBenefitsTLSInsecure   = "BENEFITS_TLS_INSECURE"
	EnvBenefitsTLSServerName = "BENEFITS_TLS_SERVER_NAME"
	EnvBenefitsMaxRetries    = "BENEFITS_MAX_RETRIES"
	EnvBenefitsToken         = "BENEFITS_TOKEN"
	EnvBenefitsRateLimit     = "BENEFITS_RATE_LIMIT"

	// RequestIdHeader carries a per-request identifier generated by the client
	RequestIdHeader = "X-Request-Id"
)

// Config is used to configure the creation of the client
type Config struct {
	// Addr is the address of the benefits API. This should be a complete URL
	// such as "https://benefits.example.com". A trailing "/v1" is removed.
	Addr string

	// Token is sent as a bearer token on every request
	Token string

	// HttpClient is the HTTP client to use. DefaultConfig creates a pooled
	// client from go-cleanhttp; start from that one when modifying it.
	HttpClient *http.Client

	// TLSConfig contains TLS configuration information. After modifying these
	// values, ConfigureTLS should be called.
	TLSConfig *TLSConfig

	// Headers contains extra headers that will be added to any request
	Headers http.Header

	// MaxRetries controls the maximum number of times to retry when a 5xx
	// error occurs. Set to 0 to disable retrying.
	MaxRetries int

	// Timeout bounds a single call including retries
	Timeout time.Duration

	// The Backoff function to use; a default is used if not provided
	Backoff retryablehttp.Backoff

	// The CheckRetry function to use; a default is used if not provided
	CheckRetry retryablehttp.CheckRetry

	// Limiter is the rate limiter used by the client. A nil limiter means no
	// limit; an empty non-nil Limiter blocks every request.
	Limiter *rate.Limiter
}

// TLSConfig contains the parameters needed to configure TLS on the HTTP client
// used to communicate with the benefits API.
type TLSConfig struct {
	// CACert is the path to a PEM-encoded CA cert file
	CACert string

	// CAPath is the path to a directory of PEM-encoded CA cert files
	CAPath string

	// ClientCert is the path to the client certificate
	ClientCert string

	// ClientKey is the path to the private key for ClientCert
	ClientKey string

	// ServerName, if set, is used to set the SNI host when connecting via
	// TLS.
	ServerName string

	// Insecure enables or disables SSL verification
	Insecure bool
}

// DefaultConfig returns a default configuration for the client. It is
// safe to modify the return value of this function.
//
// The default Addr is http://127.0.0.1:8000, but this can be overridden by
// setting the `BENEFITS_ADDR` environment variable.
func DefaultConfig() (*Config, error) {
	config := &Config{
		Addr:       "http://127.0.0.1:8000",
		HttpClient: cleanhttp.DefaultPooledClient(),
		Timeout:    time.Second * 60,
		MaxRetries: 2,
		Backoff:    retryablehttp.LinearJitterBackoff,
		Headers:    make(http.Header),
	}

	transport := config.HttpClient.Transport.(*http.Transport)
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	// Read the environment now so command flags applied afterwards take
	// precedence.
	if err := config.ReadEnvironment(); err != nil {
		return config, err
	}

	return config, nil
}

// ConfigureTLS takes a set of TLS configurations and applies those to the
// HTTP client.
func (c *Config) ConfigureTLS() error {
	if c.TLSConfig == nil {
		return nil
	}
	if c.HttpClient == nil {
		c.HttpClient = cleanhttp.DefaultPooledClient()
	}
	transport, ok := c.HttpClient.Transport.(*http.Transport)
	if !ok {
		return fmt.Errorf("unsupported http transport type %T", c.HttpClient.Transport)
	}
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	clientTLSConfig := transport.TLSClientConfig

	var clientCert tls.Certificate
	foundClientCert := false

	switch {
	case c.TLSConfig.ClientCert != "" && c.TLSConfig.ClientKey != "":
		var err error
		clientCert, err = tls.LoadX509KeyPair(c.TLSConfig.ClientCert, c.TLSConfig.ClientKey)
		if err != nil {
			return err
		}
		foundClientCert = true
	case c.TLSConfig.ClientCert != "" || c.TLSConfig.ClientKey != "":
		return fmt.Errorf("both client cert and client key must be provided")
	}

	if c.TLSConfig.CACert != "" || c.TLSConfig.CAPath != "" {
		rootConfig := &rootcerts.Config{
			CAFile: c.TLSConfig.CACert,
			CAPath: c.TLSConfig.CAPath,
		}
		if err := rootcerts.ConfigureTLS(clientTLSConfig, rootConfig); err != nil {
			return err
		}
	}

	if c.TLSConfig.Insecure {
		clientTLSConfig.InsecureSkipVerify = true
	}

	if foundClientCert {
		clientTLSConfig.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return &clientCert, nil
		}
	}

	if c.TLSConfig.ServerName != "" {
		clientTLSConfig.ServerName = c.TLSConfig.ServerName
	}

	return nil
}

// setAddr trims the trailing slash and version segment; paths passed to
// NewRequest are always resolved under /v1.
func (c *Config) setAddr(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("error parsing address: %w", err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("address %q is missing a scheme", addr)
	}
	trimmed := strings.TrimSuffix(addr, "/")
	trimmed = strings.TrimSuffix(trimmed, "/v1")
	c.Addr = trimmed
	return nil
}

// ReadEnvironment reads configuration information from the environment. If
// there is an error, no configuration value is updated.
func (c *Config) ReadEnvironment() error {
	var (
		addr       string
		token      string
		maxRetries *int
		timeout    *time.Duration
		limiter    *rate.Limiter
		tlsConfig  *TLSConfig
	)

	addr = os.Getenv(EnvBenefitsAddr)
	token = os.Getenv(EnvBenefitsToken)

	if v := os.Getenv(EnvBenefitsMaxRetries); v != "" {
		retries, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("could not parse %s: %w", EnvBenefitsMaxRetries, err)
		}
		r := int(retries)
		maxRetries = &r
	}

	if v := os.Getenv(EnvBenefitsClientTimeout); v != "" {
		clientTimeout, err := parseutil.ParseDurationSecond(v)
		if err != nil {
			return fmt.Errorf("could not parse %q", EnvBenefitsClientTimeout)
		}
		timeout = &clientTimeout
	}

	if v := os.Getenv(EnvBenefitsRateLimit); v != "" {
		rateLimit, burstLimit, err := ParseRateLimit(v)
		if err != nil {
			return err
		}
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burstLimit)
	}

	{
		var found bool
		envTLS := &TLSConfig{}
		if v := os.Getenv(EnvBenefitsCACert); v != "" {
			found = true
			envTLS.CACert = v
		}
		if v := os.Getenv(EnvBenefitsCAPath); v != "" {
			found = true
			envTLS.CAPath = v
		}
		if v := os.Getenv(EnvBenefitsClientCert); v != "" {
			found = true
			envTLS.ClientCert = v
		}
		if v := os.Getenv(EnvBenefitsClientKey); v != "" {
			found = true
			envTLS.ClientKey = v
		}
		if v := os.Getenv(EnvBenefitsTLSInsecure); v != "" {
			found = true
			insecure, err := parseutil.ParseBool(v)
			if err != nil {
				return fmt.Errorf("could not parse %s", EnvBenefitsTLSInsecure)
			}
			envTLS.Insecure = insecure
		}
		if v := os.Getenv(EnvBenefitsTLSServerName); v != "" {
			found = true
			envTLS.ServerName = v
		}
		if found {
			tlsConfig = envTLS
		}
	}

	if addr != "" {
		if err := c.setAddr(addr); err != nil {
			return err
		}
	}
	if token != "" {
		c.Token = token
	}
	if maxRetries != nil {
		c.MaxRetries = *maxRetries
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if limiter != nil {
		c.Limiter = limiter
	}
	if tlsConfig != nil {
		c.TLSConfig = tlsConfig
		return c.ConfigureTLS()
	}
	return nil
}

// ParseRateLimit parses a rate limit given as "rate" or "rate:burst"
func ParseRateLimit(val string) (rate float64, burst int, err error) {
	_, err = fmt.Sscanf(val, "%f:%d", &rate, &burst)
	if err != nil {
		rate, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("%v was provided but incorrectly formatted", EnvBenefitsRateLimit)
		}
		burst = int(rate)
	}

	return rate, burst, err
}

// Client is the client to the benefits API. Create a client with NewClient.
type Client struct {
	modifyLock sync.RWMutex
	config     *Config
}

// NewClient returns a new client for the given configuration.
//
// If the configuration is nil, the client uses DefaultConfig(), which is the
// recommended starting configuration.
func NewClient(c *Config) (*Client, error) {
	def, err := DefaultConfig()
	if err != nil {
		return nil, errwrap.Wrapf("error encountered setting up default configuration: {{err}}", err)
	}

	if c == nil {
		c = def
	}

	if c.HttpClient == nil {
		c.HttpClient = def.HttpClient
	}
	if c.HttpClient.Transport == nil {
		c.HttpClient.Transport = def.HttpClient.Transport
	}
	if c.HttpClient.CheckRedirect == nil {
		// Returning this value causes the net library to not close the
		// response body and to nil out the error, so retries do not fire on
		// every redirect.
		c.HttpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	if c.Headers == nil {
		c.Headers = make(http.Header)
	}

	if c.Addr == "" {
		c.Addr = def.Addr
	}
	if err := c.setAddr(c.Addr); err != nil {
		return nil, err
	}

	return &Client{
		config: c,
	}, nil
}

// SetAddr sets the address of the API in the client. The format of address
// should be "<Scheme>://<Host>:<Port>". Setting this on a client will override
// the value of the BENEFITS_ADDR environment variable.
func (c *Client) SetAddr(addr string) error {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	return c.config.setAddr(addr)
}

// Addr returns the current (parsed) address
func (c *Client) Addr() string {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	return c.config.Addr
}

// SetLimiter will set the rate limiter for this client.  This method is
// thread-safe.  rateLimit and burst are specified according to
// https://godoc.org/golang.org/x/time/rate#NewLimiter
func (c *Client) SetLimiter(rateLimit float64, burst int) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
}

// SetMaxRetries sets the number of retries that will be used in the case of
// certain errors
func (c *Client) SetMaxRetries(retries int) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.MaxRetries = retries
}

// SetCheckRetry sets the CheckRetry function to be used for future requests.
func (c *Client) SetCheckRetry(checkRetry retryablehttp.CheckRetry) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.CheckRetry = checkRetry
}

// SetClientTimeout sets the client request timeout
func (c *Client) SetClientTimeout(timeout time.Duration) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Timeout = timeout
}

// SetToken sets the token directly.
func (c *Client) SetToken(token string) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Token = token
}

// Token returns the token currently set
func (c *Client) Token() string {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	return c.config.Token
}

// SetHeaders clears all previous headers and uses only the given
// ones going forward.
func (c *Client) SetHeaders(headers http.Header) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()
	c.config.Headers = headers
}

// SetBackoff sets the backoff function to be used for future requests.
func (c *Client) SetBackoff(backoff retryablehttp.Backoff) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Backoff = backoff
}

// Clone creates a new client with the same configuration. Note that the same
// underlying http.Client is used.
func (c *Client) Clone() (*Client, error) {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	config := c.config

	newConfig := &Config{
		Addr:       config.Addr,
		Token:      config.Token,
		HttpClient: config.HttpClient,
		Headers:    config.Headers.Clone(),
		MaxRetries: config.MaxRetries,
		Timeout:    config.Timeout,
		Backoff:    config.Backoff,
		CheckRetry: config.CheckRetry,
		Limiter:    config.Limiter,
	}
	if config.TLSConfig != nil {
		newConfig.TLSConfig = new(TLSConfig)
		*newConfig.TLSConfig = *config.TLSConfig
	}

	return NewClient(newConfig)
}

// NewRequest creates a new raw request object to query the benefits API. The
// request path is resolved under /v1. A non-nil body is marshaled to JSON
// unless it is an io.Reader, which is sent as-is.
func (c *Client) NewRequest(ctx context.Context, method, requestPath string, body any, opt ...Option) (*retryablehttp.Request, error) {
	if ctx == nil {
		return nil, errors.New("nil context passed to NewRequest")
	}
	opts := getOpts(opt...)

	c.modifyLock.RLock()
	addr := c.config.Addr
	token := c.config.Token
	httpClient := c.config.HttpClient
	headers := c.config.Headers.Clone()
	c.modifyLock.RUnlock()

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(addr, "unix://") {
		socket := strings.TrimPrefix(addr, "unix://")
		transport := httpClient.Transport.(*http.Transport)
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			dialer := net.Dialer{}
			return dialer.DialContext(ctx, "unix", socket)
		}
		// The URL must name the application protocol, not the transport.
		u.Scheme = "http"
		u.Host = "localhost"
		u.Path = ""
	}

	var rawBody any
	switch b := body.(type) {
	case nil:
	case io.Reader:
		rawBody = b
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request body: %w", err)
		}
		rawBody = bytes.NewReader(buf)
	}

	reqUrl := &url.URL{
		User:   u.User,
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   path.Join(u.Path, "v1", requestPath),
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, reqUrl.String(), rawBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if headers == nil {
		headers = make(http.Header)
	}
	req.Header = headers
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.withContentType != "" {
		req.Header.Set("Content-Type", opts.withContentType)
	}
	reqId := opts.withRequestId
	if reqId == "" {
		if reqId, err = uuid.GenerateUUID(); err != nil {
			return nil, fmt.Errorf("error generating request id: %w", err)
		}
	}
	req.Header.Set(RequestIdHeader, reqId)

	return req, nil
}

// Do takes a properly configured request and applies client configuration to
// it, returning the response.
func (c *Client) Do(r *retryablehttp.Request) (*Response, error) {
	c.modifyLock.RLock()
	limiter := c.config.Limiter
	maxRetries := c.config.MaxRetries
	checkRetry := c.config.CheckRetry
	backoff := c.config.Backoff
	httpClient := c.config.HttpClient
	timeout := c.config.Timeout
	token := c.config.Token
	c.modifyLock.RUnlock()

	ctx := r.Context()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// Sanity check the token before potentially erroring from the API
	idx := strings.IndexFunc(token, func(c rune) bool {
		return !unicode.IsPrint(c)
	})
	if idx != -1 {
		return nil, fmt.Errorf("configured token contains non-printable characters and cannot be used")
	}

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		// The body is read into the Response before returning, so the timeout
		// can be released here.
		defer cancel()
	}
	r = r.WithContext(ctx)

	if backoff == nil {
		backoff = retryablehttp.LinearJitterBackoff
	}

	if checkRetry == nil {
		checkRetry = retryablehttp.DefaultRetryPolicy
	}

	client := &retryablehttp.Client{
		HTTPClient:   httpClient,
		RetryWaitMin: 1000 * time.Millisecond,
		RetryWaitMax: 1500 * time.Millisecond,
		RetryMax:     maxRetries,
		Backoff:      backoff,
		CheckRetry:   checkRetry,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	result, err := client.Do(r)
	if err != nil {
		if strings.Contains(err.Error(), "tls: oversized") {
			err = errwrap.Wrapf(
				"{{err}}\n\n"+
					"This error usually means that the API is served without TLS\n"+
					"but the client is configured to use TLS. Set the address to\n"+
					"one using the http protocol:\n\n"+
					"    BENEFITS_ADDR=http://<address>\n",
				err)
		}
		return nil, err
	}

	resp := NewResponse(result)
	// Buffer the body while the request context is still live.
	if err := resp.readBody(); err != nil {
		return nil, err
	}
	return resp, nil
}
