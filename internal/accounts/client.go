package accounts

import (
	"authbot/internal/metrics"
	"authbot/internal/types"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmespath/go-jmespath"
	log "github.com/sirupsen/logrus"
)

const (
	LoginPath = "/api/v1/accounts/login"

	RequestIDHdrName = "X-Request-ID"

	DefaultLinkField = "authorization_link"
	DefaultTimeout   = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Client talks to the remote account service. It makes exactly one request per
// IssueAuthLink call and never retries.
type Client struct {
	baseURL   string
	login     string
	password  string
	linkName  string
	linkField *jmespath.JMESPath
	http      *http.Client
}

type Options struct {
	BaseURL  string
	Login    string
	Password string
	// LinkField is a JMESPath expression selecting the link in the response body.
	LinkField string
	Timeout   time.Duration
	// HTTPClient overrides the default client; its Timeout is left as is.
	HTTPClient *http.Client
}

func NewClient(o Options) (*Client, error) {
	if o.BaseURL == "" {
		return nil, types.Err(types.ErrInvalidConfig, nil, "account service base URL is required")
	}
	field := o.LinkField
	if field == "" {
		field = DefaultLinkField
	}
	expr, err := jmespath.Compile(field)
	if err != nil {
		return nil, types.Err(types.ErrInvalidConfig, err, "link field %q", field)
	}
	hc := o.HTTPClient
	if hc == nil {
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   o.BaseURL,
		login:     o.Login,
		password:  o.Password,
		linkName:  field,
		linkField: expr,
		http:      hc,
	}, nil
}

// IssueAuthLink exchanges the chat identity and phone for a fresh authorization link.
// Any failure is returned wrapped in types.ErrAuth.
func (c *Client) IssueAuthLink(ctx context.Context, userID int64, username *string, phone string) (link string, err error) {
	started := time.Now()
	defer func() {
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultError
		}
		metrics.RemoteCall(result, time.Since(started).Seconds())
	}()

	body, err := json.Marshal(types.LoginRequest{
		TelegramUserID:   strconv.FormatInt(userID, 10),
		TelegramUsername: username,
		Phone:            phone,
	})
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "encode login request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "build login request")
	}
	requestID := uuid.NewString()
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHdrName, requestID)

	logger := log.WithFields(log.Fields{
		"userID":    userID,
		"requestID": requestID,
	})
	logger.Debug("Requesting authorization link")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "login request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "read login response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", types.Err(types.ErrAuth, nil, "login returned status %d", resp.StatusCode)
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", types.Err(types.ErrAuth, err, "decode login response")
	}
	link, err = c.extractLink(payload)
	if err != nil {
		return "", err
	}
	logger.Info("Authorization link issued")
	return link, nil
}

func (c *Client) extractLink(payload any) (string, error) {
	v, err := c.linkField.Search(payload)
	if err != nil {
		return "", types.Err(types.ErrAuth, err, "jmespath")
	}
	link, ok := v.(string)
	if !ok || link == "" {
		return "", types.Err(types.ErrAuth, nil, "login response has no %s", c.linkName)
	}
	return link, nil
}
