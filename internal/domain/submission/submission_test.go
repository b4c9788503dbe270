package submission_test

import (
	"encoding/json"
	"testing"

	"github.com/fagerbits/quizrelay/internal/domain/submission"
	. "github.com/smartystreets/goconvey/convey"
)

const samplePayload = `{
	"event_id": "01HQ",
	"event_type": "form_response",
	"form_response": {
		"form_id": "abc123",
		"token": "tok-1",
		"submitted_at": "2024-08-01T10:30:00Z",
		"hidden": {
			"quiz_name": "FagerBitQuiz",
			"source": "Website",
			"utm_id": 42
		},
		"calculated": {
			"score": 7,
			"outcome": {"id": "out-1", "title": "HildaMaria"}
		},
		"answers": [
			{
				"type": "email",
				"field": {"id": "f1", "ref": "email-ref", "type": "email"},
				"email": "rider@example.com"
			},
			{
				"type": "text",
				"field": {"id": "f2", "ref": "horse-name", "type": "short_text", "title": "What is your horse called?"},
				"text": "Lansett"
			},
			{
				"type": "boolean",
				"field": {"id": "f3", "ref": "consent-ref", "type": "legal"},
				"boolean": true
			}
		],
		"definition": {
			"endings": [
				{"ref": "e1", "title": "HildaMaria", "properties": {"button_text": "HildaMaria quiz-snaffle-36"}}
			]
		}
	}
}`

func TestWebhookRequestDecoding(t *testing.T) {
	Convey("Given a Typeform webhook payload", t, func() {
		var req submission.WebhookRequest
		err := json.Unmarshal([]byte(samplePayload), &req)
		So(err, ShouldBeNil)
		So(req.FormResponse, ShouldNotBeNil)
		fr := req.FormResponse

		Convey("Then the typed view should be populated", func() {
			So(fr.FormID, ShouldEqual, "abc123")
			So(fr.Token, ShouldEqual, "tok-1")
			So(fr.SubmittedAt, ShouldEqual, "2024-08-01T10:30:00Z")
			So(fr.Calculated.Outcome.Title, ShouldEqual, "HildaMaria")
			So(len(fr.Answers), ShouldEqual, 3)
		})

		Convey("When reading hidden fields", func() {
			quizName, ok := fr.HiddenString("quiz_name")
			So(ok, ShouldBeTrue)
			So(quizName, ShouldEqual, "FagerBitQuiz")

			Convey("Then non-string values should be stringified", func() {
				utm, ok := fr.HiddenString("utm_id")
				So(ok, ShouldBeTrue)
				So(utm, ShouldEqual, "42")
			})

			Convey("Then missing keys should report absence", func() {
				_, ok := fr.HiddenString("ending")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When locating answers", func() {
			a, ok := fr.AnswerByRef("consent-ref")
			So(ok, ShouldBeTrue)
			So(a.Boolean, ShouldNotBeNil)
			So(*a.Boolean, ShouldBeTrue)

			a, ok = fr.AnswerByType("email")
			So(ok, ShouldBeTrue)
			So(a.Email, ShouldEqual, "rider@example.com")

			a, ok = fr.AnswerByKeyword("horse", "häst")
			So(ok, ShouldBeTrue)
			So(a.Text, ShouldEqual, "Lansett")

			a, ok = fr.FirstFreeText()
			So(ok, ShouldBeTrue)
			So(a.Text, ShouldEqual, "Lansett")
		})

		Convey("When deep-scanning the payload", func() {
			all := fr.Strings()
			So(len(all), ShouldBeGreaterThan, 0)

			var foundLabel bool
			for _, s := range all {
				if s == "HildaMaria quiz-snaffle-36" {
					foundLabel = true
				}
			}

			Convey("Then strings outside the typed view should be visible", func() {
				So(foundLabel, ShouldBeTrue)
			})
		})
	})
}

func TestAnswerValue(t *testing.T) {
	Convey("Given answers of different types", t, func() {
		cases := []struct {
			name string
			a    submission.Answer
			want string
		}{
			{"email", submission.Answer{Type: "email", Email: "a@b.co"}, "a@b.co"},
			{"text", submission.Answer{Type: "text", Text: "Lansett"}, "Lansett"},
			{"url", submission.Answer{Type: "url", URL: "https://x.se"}, "https://x.se"},
			{"choice", submission.Answer{Type: "choice", Choice: &submission.Choice{Label: "Yes"}}, "Yes"},
			{"empty", submission.Answer{Type: "boolean"}, ""},
		}

		for _, tc := range cases {
			Convey("Then "+tc.name+" should yield its value", func() {
				So(tc.a.Value(), ShouldEqual, tc.want)
			})
		}
	})
}
