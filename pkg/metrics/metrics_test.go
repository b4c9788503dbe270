package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a metrics manager", t, func() {
		Convey("When created with defaults on its own registry", func() {
			m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then it should use the relay namespace", func() {
				So(m, ShouldNotBeNil)
				So(m.namespace, ShouldEqual, "quizrelay")
				So(m.subsystem, ShouldEqual, "webhook")
			})
		})

		Convey("When created with custom options", func() {
			m := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithNamespace("custom"),
				WithSubsystem("relay"),
				WithHistogramBuckets([]float64{1, 5, 10}),
			)

			Convey("Then the options should be applied", func() {
				So(m.namespace, ShouldEqual, "custom")
				So(m.subsystem, ShouldEqual, "relay")
				So(len(m.histogramBuckets), ShouldEqual, 3)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording relay outcomes", func() {
			RecordSubmissionReceived()
			RecordSubmissionRelayed()
			RecordSubmissionSkipped("no_email")
			RecordSubmissionSkipped("secret_mismatch")
			RecordUnknownEnding()
			RecordHTTPRequest("webhook", "POST", "200")
			RecordHTTPRequestDuration("webhook", "POST", "200", 12.5)
			RecordKlaviyoRequest("create_profile", "201")
			RecordKlaviyoRequestDuration("create_profile", 42)
			RecordKlaviyoRetry()
			RecordEventSendFailure()
			RecordProfileConflict()
			RecordSubscriptionPollTimeout()
			RecordErrorByComponent("klaviyo", "timeout")
			RecordErrorByType("timeout", "medium")
			RecordErrorByEndpoint("webhook", "POST", "server_error")
			RecordErrorLatency("klaviyo", "timeout", 100)
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(10)
			RecordSystemGCPauseTime(0.5)

			Convey("Then the custom registry should expose relay metrics", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)

				var found bool
				for _, f := range families {
					if strings.Contains(f.GetName(), "submissions_received_total") {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}
