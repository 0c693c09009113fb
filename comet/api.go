package comet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultHttpTimeout = 60 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

const InstanceHeader = "X-Chaton-Instance"

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any]() (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R], 1)
	apiCallback := NewApiCallback[R](func(result R, err error) {
		c <- ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
	})
	return apiCallback, c
}

// the three server calls the client makes.
// implementations must return immediately and deliver the result on the callback.
type Api interface {
	FetchContent(requestTag string, position int64, callback ContentCallback)
	FetchCount(callback CountCallback)
	Post(nick string, text string, callback PostCallback)
}

type ContentCallback apiCallback[*ContentResponse]

type CountCallback apiCallback[int64]

type PostCallback apiCallback[*PostResult]

type PostResult struct {
	Body string
}

type Endpoints struct {
	// comet server root. content is fetched from here and version mismatches navigate here.
	CometUrl string
	CountUrl string
	PostUrl  string
}

func (self *Endpoints) ContentUrl(requestTag string, position int64) string {
	// the server expects `t` before `p`
	return fmt.Sprintf("%s?t=%s&p=%d", self.RootUrl(), url.QueryEscape(requestTag), position)
}

func (self *Endpoints) RootUrl() string {
	if strings.HasSuffix(self.CometUrl, "/") {
		return self.CometUrl
	}
	return self.CometUrl + "/"
}

type CometApiSettings struct {
	HttpConnectTimeout time.Duration
	HttpTlsTimeout     time.Duration
	// applies to count and post. the content request is held by the server
	// and has no client side timeout.
	HttpTimeout time.Duration
}

func DefaultCometApiSettings() *CometApiSettings {
	return &CometApiSettings{
		HttpConnectTimeout: defaultHttpConnectTimeout,
		HttpTlsTimeout:     defaultHttpTlsTimeout,
		HttpTimeout:        defaultHttpTimeout,
	}
}

type CometApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	endpoints  *Endpoints
	instanceId Id

	longPollClient *http.Client
	client         *http.Client
}

func NewCometApiWithDefaults(ctx context.Context, endpoints *Endpoints, instanceId Id) *CometApi {
	return NewCometApi(ctx, endpoints, instanceId, DefaultCometApiSettings())
}

func NewCometApi(ctx context.Context, endpoints *Endpoints, instanceId Id, settings *CometApiSettings) *CometApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	// see https://medium.com/@nate510/don-t-use-go-s-default-http-client-4804cb19f779
	dialer := &net.Dialer{
		Timeout: settings.HttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: settings.HttpTlsTimeout,
	}

	return &CometApi{
		ctx:        cancelCtx,
		cancel:     cancel,
		endpoints:  endpoints,
		instanceId: instanceId,
		longPollClient: &http.Client{
			Transport: transport,
		},
		client: &http.Client{
			Transport: transport,
			Timeout:   settings.HttpTimeout,
		},
	}
}

func (self *CometApi) FetchContent(requestTag string, position int64, callback ContentCallback) {
	go get[*ContentResponse](
		self.ctx,
		self.longPollClient,
		self.endpoints.ContentUrl(requestTag, position),
		self.instanceId,
		decodeContent,
		callback,
	)
}

func (self *CometApi) FetchCount(callback CountCallback) {
	go get[int64](
		self.ctx,
		self.client,
		self.endpoints.CountUrl,
		self.instanceId,
		decodeCount,
		callback,
	)
}

func (self *CometApi) Post(nick string, text string, callback PostCallback) {
	values := url.Values{}
	values.Set("nick", nick)
	values.Set("text", text)
	go postForm(
		self.ctx,
		self.client,
		self.endpoints.PostUrl,
		self.instanceId,
		values,
		callback,
	)
}

func (self *CometApi) Close() {
	self.cancel()
}

func decodeJson[R any](body []byte) (R, error) {
	var result R
	if err := json.Unmarshal(body, &result); err != nil {
		var empty R
		return empty, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return result, nil
}

// a `null` body decodes without error to a nil response
func decodeContent(body []byte) (*ContentResponse, error) {
	result, err := decodeJson[*ContentResponse](body)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: empty content response", ErrDecode)
	}
	return result, nil
}

func decodeCount(body []byte) (int64, error) {
	count, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCount, strings.TrimSpace(string(body)))
	}
	return count, nil
}

func statusError(r *http.Response, body []byte) error {
	// the response body is the error message
	errorMessage := strings.TrimSpace(string(body))
	return fmt.Errorf("%w %d: %s", ErrStatus, r.StatusCode, errorMessage)
}

func get[R any](
	ctx context.Context,
	client *http.Client,
	requestUrl string,
	instanceId Id,
	decode func([]byte) (R, error),
	callback apiCallback[R],
) (R, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", requestUrl, nil)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add(InstanceHeader, instanceId.String())
	req.Header.Add("Cache-Control", "no-cache")

	return do(client, req, decode, callback)
}

func postForm(
	ctx context.Context,
	client *http.Client,
	requestUrl string,
	instanceId Id,
	values url.Values,
	callback PostCallback,
) (*PostResult, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", requestUrl, strings.NewReader(values.Encode()))
	if err != nil {
		callback.Result(nil, err)
		return nil, err
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add(InstanceHeader, instanceId.String())

	decode := func(body []byte) (*PostResult, error) {
		return &PostResult{
			Body: string(body),
		}, nil
	}
	return do[*PostResult](client, req, decode, callback)
}

func do[R any](
	client *http.Client,
	req *http.Request,
	decode func([]byte) (R, error),
	callback apiCallback[R],
) (R, error) {
	var empty R

	r, err := client.Do(req)
	if err != nil {
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		err = statusError(r, responseBodyBytes)
		callback.Result(empty, err)
		return empty, err
	}

	if err != nil {
		callback.Result(empty, err)
		return empty, err
	}

	result, err := decode(responseBodyBytes)
	if err != nil {
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}
