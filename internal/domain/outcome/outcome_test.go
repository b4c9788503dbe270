package outcome_test

import (
	"net/http"
	"testing"

	"github.com/fagerbits/quizrelay/internal/domain/outcome"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRespond(t *testing.T) {
	Convey("Given the response policy", t, func() {
		Convey("When the submission was relayed", func() {
			status, body := outcome.Result{Kind: outcome.OK}.Respond()
			So(status, ShouldEqual, http.StatusOK)
			So(body.OK, ShouldBeTrue)
		})

		Convey("When the request was skipped", func() {
			for _, k := range []outcome.Kind{outcome.SecretMismatch, outcome.TestPayload, outcome.NoEmail} {
				status, body := outcome.Result{Kind: k, Note: "skipped"}.Respond()

				So(status, ShouldEqual, http.StatusOK)
				So(body.OK, ShouldBeTrue)
				So(body.Note, ShouldEqual, "skipped")
			}
		})

		Convey("When the upstream event send failed", func() {
			status, body := outcome.Result{Kind: outcome.EventFailed, UpstreamStatus: 502}.Respond()

			Convey("Then the caller still gets a 200 so it does not retry", func() {
				So(status, ShouldEqual, http.StatusOK)
				So(body.OK, ShouldBeFalse)
				So(body.Upstream, ShouldEqual, "klaviyo")
				So(body.Status, ShouldEqual, 502)
			})
		})

		Convey("When profile resolution failed", func() {
			status, body := outcome.Result{Kind: outcome.ProfileFailed, UpstreamStatus: 503}.Respond()
			So(status, ShouldEqual, http.StatusOK)
			So(body.OK, ShouldBeFalse)
		})

		Convey("When an internal fault occurred", func() {
			status, body := outcome.Result{Kind: outcome.Internal, Note: "bad json"}.Respond()

			Convey("Then and only then a 5xx is returned", func() {
				So(status, ShouldEqual, http.StatusInternalServerError)
				So(body.OK, ShouldBeFalse)
			})
		})
	})
}

func TestKindLabels(t *testing.T) {
	Convey("Given result kinds", t, func() {
		Convey("Then each should have a stable label", func() {
			So(outcome.OK.String(), ShouldEqual, "ok")
			So(outcome.SecretMismatch.String(), ShouldEqual, "secret_mismatch")
			So(outcome.TestPayload.String(), ShouldEqual, "test_payload")
			So(outcome.NoEmail.String(), ShouldEqual, "no_email")
			So(outcome.ProfileFailed.String(), ShouldEqual, "profile_failed")
			So(outcome.EventFailed.String(), ShouldEqual, "event_failed")
			So(outcome.Internal.String(), ShouldEqual, "internal")
		})

		Convey("Then skip detection should cover exactly the pre-call exits", func() {
			So(outcome.Result{Kind: outcome.SecretMismatch}.Skipped(), ShouldBeTrue)
			So(outcome.Result{Kind: outcome.TestPayload}.Skipped(), ShouldBeTrue)
			So(outcome.Result{Kind: outcome.NoEmail}.Skipped(), ShouldBeTrue)
			So(outcome.Result{Kind: outcome.OK}.Skipped(), ShouldBeFalse)
			So(outcome.Result{Kind: outcome.EventFailed}.Skipped(), ShouldBeFalse)
		})
	})
}
