package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/fagerbits/quizrelay/internal/domain/outcome"
	"github.com/fagerbits/quizrelay/internal/domain/submission"
	"github.com/fagerbits/quizrelay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// mockRelay implements Dependencies and StatsProvider for handler tests.
type mockRelay struct {
	result outcome.Result
	gotReq *submission.WebhookRequest
	calls  int
	stats  map[string]interface{}
}

func (m *mockRelay) Process(_ context.Context, req *submission.WebhookRequest) outcome.Result {
	m.calls++
	m.gotReq = req
	return m.result
}

func (m *mockRelay) GetStats() map[string]interface{} {
	if m.stats == nil {
		return map[string]interface{}{"received": int64(0)}
	}
	return m.stats
}

func newTestServer(relay *mockRelay) *httptest.Server {
	mux := http.NewServeMux()
	NewServer(relay, relay).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func postWebhook(t *testing.T, url, body string) (*http.Response, outcome.Response) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()
	var decoded outcome.Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, decoded
}

func TestHandleWebhook(t *testing.T) {
	Convey("Given the webhook endpoint", t, func() {
		relay := &mockRelay{result: outcome.Result{Kind: outcome.OK, Note: "relayed"}}
		srv := newTestServer(relay)
		defer srv.Close()
		url := srv.URL + "/webhooks/typeform"

		Convey("When a valid delivery arrives", func() {
			resp, body := postWebhook(t, url, `{"event_id": "ev-1", "form_response": {"form_id": "abc123", "answers": []}}`)

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body.OK, ShouldBeTrue)
			So(relay.calls, ShouldEqual, 1)
			So(relay.gotReq.FormResponse.FormID, ShouldEqual, "abc123")
		})

		Convey("When the body is not JSON", func() {
			resp, body := postWebhook(t, url, `{not json`)

			Convey("Then it is the one case answered with a 5xx", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusInternalServerError)
				So(body.OK, ShouldBeFalse)
				So(relay.calls, ShouldEqual, 0)
			})
		})

		Convey("When the method is not POST", func() {
			resp, err := http.Get(url)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			So(resp.Header.Get("Allow"), ShouldEqual, http.MethodPost)
			So(relay.calls, ShouldEqual, 0)
		})

		Convey("When the secret rides in the query string", func() {
			_, _ = postWebhook(t, url+"?secret=s3cret", `{"form_response": {"form_id": "abc123", "answers": []}}`)

			So(relay.gotReq.Secret, ShouldEqual, "s3cret")
		})

		Convey("When the relay reports an upstream failure", func() {
			relay.result = outcome.Result{Kind: outcome.EventFailed, Note: "event dispatch failed", UpstreamStatus: 502}
			resp, body := postWebhook(t, url, `{"form_response": {"form_id": "abc123", "answers": []}}`)

			Convey("Then the caller still gets a 200", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body.OK, ShouldBeFalse)
				So(body.Upstream, ShouldEqual, "klaviyo")
				So(body.Status, ShouldEqual, 502)
			})
		})
	})
}

func TestHandleStats(t *testing.T) {
	Convey("Given the stats endpoint", t, func() {
		relay := &mockRelay{stats: map[string]interface{}{"received": int64(7), "relayed": int64(5)}}
		srv := newTestServer(relay)
		defer srv.Close()

		Convey("When queried", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var stats map[string]any
			So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(stats["received"], ShouldEqual, float64(7))
			So(stats["relayed"], ShouldEqual, float64(5))
		})

		Convey("When hit with the wrong method", func() {
			resp, err := http.Post(srv.URL+"/stats", "application/json", strings.NewReader("{}"))
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestHandleHealth(t *testing.T) {
	Convey("Given the health endpoint", t, func() {
		relay := &mockRelay{}
		srv := newTestServer(relay)
		defer srv.Close()

		Convey("When scraped", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			So(err, ShouldBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, "quizrelay_webhook")
		})
	})
}
