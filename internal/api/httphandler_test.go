package api

import (
	"authbot/internal/accounts"
	"authbot/internal/authcache"
	"authbot/internal/backends/memory"
	"authbot/internal/faq"
	"authbot/internal/flow"
	"authbot/internal/types"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/suite"
)

const (
	TestServerPort = 39080
	testErrMessage = "Please try again later."
	startOfTest    = 1_700_000_000
)

var baseURL = fmt.Sprintf("http://localhost:%d", TestServerPort)

type HTTPHandlerTestSuite struct {
	suite.Suite

	now      atomic.Int64
	store    *memory.Store
	accounts *httptest.Server
	calls    atomic.Int32
	failing  atomic.Bool
	stopChan chan<- struct{} // Send only
	doneChan <-chan error    // Receive only
}

func TestHTTPHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HTTPHandlerTestSuite))
}

func (s *HTTPHandlerTestSuite) SetupSuite() {
	s.accounts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if s.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"authorization_link":"https://x/y"}`))
	}))
	client, err := accounts.NewClient(accounts.Options{BaseURL: s.accounts.URL, Timeout: time.Second})
	s.Require().NoError(err)

	s.store = memory.NewStore(s.clock)
	cache := authcache.NewService(s.store, 7*24*time.Hour, 600*time.Second, authcache.WithClock(s.clock))
	orch := flow.NewOrchestrator(cache, client, cache.AuthLinkTTL(), flow.WithClock(s.clock))

	catalog, err := faq.Parse([]byte(`
themes:
  - theme: Account
    questions:
      - question: How do I log in?
        answer: Send /start and share your phone number.
`))
	s.Require().NoError(err)

	s.stopChan, s.doneChan = RunServerInterruptible(TestServerPort, NewHandler(orch, catalog, testErrMessage))
	s.waitReady()
}

func (s *HTTPHandlerTestSuite) clock() time.Time {
	return time.Unix(s.now.Load(), 0)
}

func (s *HTTPHandlerTestSuite) advance(d time.Duration) {
	s.now.Add(int64(d / time.Second))
}

func (s *HTTPHandlerTestSuite) waitReady() {
	s.Eventually(func() bool {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
}

func (s *HTTPHandlerTestSuite) TearDownSuite() {
	s.stopChan <- struct{}{}
	s.NoError(<-s.doneChan)
	s.accounts.Close()
}

func (s *HTTPHandlerTestSuite) SetupTest() {
	s.now.Store(startOfTest)
	s.calls.Store(0)
	s.failing.Store(false)
	s.store.SetFailing(false)
}

func (s *HTTPHandlerTestSuite) post(path string, body any) (int, authResponse) {
	b, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(baseURL+path, "application/json", bytes.NewReader(b))
	s.Require().NoError(err)
	defer func() {
		_ = resp.Body.Close()
	}()
	var out authResponse
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (s *HTTPHandlerTestSuite) TestStartThenPhoneThenCached() {
	code, out := s.post("/auth/start", map[string]any{"user_id": 1001})
	s.Equal(http.StatusOK, code)
	s.Equal("request_phone", out.Status)
	s.Zero(s.calls.Load())

	code, out = s.post("/auth/phone", map[string]any{"user_id": 1001, "username": "alice", "phone": "+10000000000"})
	s.Equal(http.StatusOK, code)
	s.Equal("new_link", out.Status)
	s.Equal("https://x/y", out.Link)
	s.Equal(int64(startOfTest+600), out.ExpiresAt)
	s.Equal("10 min 0 sec", out.ExpiresIn)
	s.Equal(int32(1), s.calls.Load())

	s.advance(55 * time.Second)
	code, out = s.post("/auth/start", map[string]any{"user_id": 1001})
	s.Equal(http.StatusOK, code)
	s.Equal("cached_link", out.Status)
	s.Equal("https://x/y", out.Link)
	s.Equal("9 min 5 sec", out.ExpiresIn)
	s.Equal(int32(1), s.calls.Load())
}

func (s *HTTPHandlerTestSuite) TestRemoteFailureShowsGenericMessage() {
	s.failing.Store(true)
	code, out := s.post("/auth/phone", map[string]any{"user_id": 1002, "phone": "+10000000000"})
	s.Equal(http.StatusBadGateway, code)
	s.Equal("error", out.Status)
	s.Equal(testErrMessage, out.Message)
	s.Empty(out.Link)
}

func (s *HTTPHandlerTestSuite) TestCacheDownStillIssues() {
	s.store.SetFailing(true)
	code, out := s.post("/auth/phone", map[string]any{"user_id": 1003, "phone": "+10000000000"})
	s.Equal(http.StatusOK, code)
	s.Equal("new_link", out.Status)
}

func (s *HTTPHandlerTestSuite) TestForgetPhone() {
	s.post("/auth/phone", map[string]any{"user_id": 1004, "phone": "+10000000000"})
	s.advance(601 * time.Second)

	req, err := http.NewRequest(http.MethodDelete, baseURL+"/auth/phone?user_id=1004", nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusNoContent, resp.StatusCode)

	_, out := s.post("/auth/start", map[string]any{"user_id": 1004})
	s.Equal("request_phone", out.Status)
}

func (s *HTTPHandlerTestSuite) TestBadRequests() {
	resp, err := http.Post(baseURL+"/auth/start", "application/json", bytes.NewReader([]byte("{")))
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	code, _ := s.post("/auth/start", map[string]any{"username": "nobody"})
	s.Equal(http.StatusBadRequest, code)

	req, err := http.NewRequest(http.MethodDelete, baseURL+"/auth/phone", nil)
	s.Require().NoError(err)
	resp, err = http.DefaultClient.Do(req)
	s.Require().NoError(err)
	_ = resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HTTPHandlerTestSuite) get(path string) (int, map[string]any) {
	resp, err := http.Get(baseURL + path)
	s.Require().NoError(err)
	defer func() {
		_ = resp.Body.Close()
	}()
	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (s *HTTPHandlerTestSuite) TestFAQ() {
	code, out := s.get("/faq")
	s.Equal(http.StatusOK, code)
	s.Len(out["themes"], 1)

	code, out = s.get("/faq/0")
	s.Equal(http.StatusOK, code)
	s.Equal("Account", out["theme"])
	s.Equal(faq.CallbackHome, out["home"])

	code, out = s.get("/faq/0/0")
	s.Equal(http.StatusOK, code)
	s.Equal("Send /start and share your phone number.", out["answer"])
	s.Equal("faq_theme:0", out["back"])

	code, _ = s.get("/faq/1")
	s.Equal(http.StatusNotFound, code)
	code, _ = s.get("/faq/0/9")
	s.Equal(http.StatusNotFound, code)
	code, _ = s.get("/faq/x")
	s.Equal(http.StatusBadRequest, code)
}

func (s *HTTPHandlerTestSuite) TestFAQCallbacks() {
	code, out := s.get("/faq/callback/" + faq.CallbackThemes)
	s.Equal(http.StatusOK, code)
	s.Len(out["themes"], 1)

	code, out = s.get("/faq/callback/" + faq.CallbackHome)
	s.Equal(http.StatusOK, code)
	s.Len(out["themes"], 1)

	code, out = s.get("/faq/callback/" + faq.ThemeCallback(0))
	s.Equal(http.StatusOK, code)
	s.Equal("Account", out["theme"])
	questions := out["questions"].([]any)
	s.Require().Len(questions, 1)
	next := questions[0].(map[string]any)["callback"].(string)
	s.Equal("faq_question:0:0", next)

	code, out = s.get("/faq/callback/" + next)
	s.Equal(http.StatusOK, code)
	s.Equal("How do I log in?", out["question"])

	code, out = s.get("/faq/callback/" + out["back"].(string))
	s.Equal(http.StatusOK, code)
	s.Equal("Account", out["theme"])

	code, _ = s.get("/faq/callback/faq_theme:4")
	s.Equal(http.StatusNotFound, code)
	code, _ = s.get("/faq/callback/faq_question:0:x")
	s.Equal(http.StatusBadRequest, code)
	code, _ = s.get("/faq/callback/auth_start")
	s.Equal(http.StatusBadRequest, code)
}

func (s *HTTPHandlerTestSuite) TestMetricsExposed() {
	s.post("/auth/start", map[string]any{"user_id": 1005})

	resp, err := http.Get(baseURL + "/metrics")
	s.Require().NoError(err)
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, _ := io.ReadAll(resp.Body)
	s.Contains(string(raw), "authbot_auth_outcomes_total")
}

type stubAuth struct {
	out flow.Outcome
}

func (a stubAuth) Start(context.Context, types.User) flow.Outcome { return a.out }

func (a stubAuth) SubmitPhone(context.Context, types.User, string) flow.Outcome { return a.out }

func (a stubAuth) ForgetPhone(context.Context, types.User) {}

func TestWriteOutcomeHidesErrorDetails(t *testing.T) {
	h := NewHandler(stubAuth{out: flow.Outcome{
		Action: flow.ReportError,
		Err:    types.Err(types.ErrAuth, nil, "login returned status 500 from 10.0.0.7"),
	}}, nil, testErrMessage)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/start", bytes.NewReader([]byte(`{"user_id":1}`)))
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("10.0.0.7")) {
		t.Fatalf("error details leaked: %s", rec.Body.String())
	}
}
