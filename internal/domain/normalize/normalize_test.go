package normalize_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fagerbits/quizrelay/internal/domain/normalize"
	"github.com/fagerbits/quizrelay/internal/domain/submission"
	. "github.com/smartystreets/goconvey/convey"
)

func decodeForm(t *testing.T, payload string) *submission.FormResponse {
	t.Helper()
	var fr submission.FormResponse
	if err := json.Unmarshal([]byte(payload), &fr); err != nil {
		t.Fatalf("decode form response: %v", err)
	}
	return &fr
}

func TestNormalize(t *testing.T) {
	Convey("Given a normalizer with defaults", t, func() {
		n := normalize.New(normalize.WithConsentRef("consent-ref"))

		Convey("When normalizing a complete submission", func() {
			fr := decodeForm(t, `{
				"form_id": "abc123",
				"token": "tok-1",
				"submitted_at": "2024-08-01T10:30:00Z",
				"hidden": {"quiz_name": "FagerBitQuiz", "source": "Instagram", "language": "sv"},
				"calculated": {"outcome": {"title": "HildaMaria"}},
				"answers": [
					{"type": "email", "field": {"id": "f1", "ref": "email-ref", "type": "email"}, "email": "rider@example.com"},
					{"type": "text", "field": {"id": "f2", "ref": "horse-name", "type": "short_text", "title": "Your horse"}, "text": "Lansett"},
					{"type": "boolean", "field": {"id": "f3", "ref": "consent-ref", "type": "legal"}, "boolean": true}
				],
				"definition": {"endings": [{"properties": {"button_text": "HildaMaria quiz-snaffle-36"}}]}
			}`)

			f := n.Normalize(fr)

			Convey("Then all fields should resolve", func() {
				So(f.Email, ShouldEqual, "rider@example.com")
				So(f.ConsentGiven, ShouldBeTrue)
				So(f.EndingTitle, ShouldEqual, "HildaMaria")
				So(f.EndingKey, ShouldEqual, "hildamaria")
				So(f.QuizPath, ShouldEqual, "category/quiz-snaffle-36")
				So(f.QuizGroup, ShouldEqual, "snaffle")
				So(f.HorseName, ShouldEqual, "Lansett")
				So(f.QuizName, ShouldEqual, "FagerBitQuiz")
				So(f.Source, ShouldEqual, "Instagram")
				So(f.Language, ShouldEqual, "sv")
				So(f.Segment, ShouldEqual, "Newsletter SE")
				So(f.Country, ShouldEqual, "Sweden")
				So(f.FormID, ShouldEqual, "abc123")
				So(f.ResponseID, ShouldEqual, "tok-1")
				So(f.SubmittedAt.Equal(time.Date(2024, 8, 1, 10, 30, 0, 0, time.UTC)), ShouldBeTrue)
				So(f.UnknownEnding(), ShouldBeFalse)
			})
		})

		Convey("When the payload has almost nothing", func() {
			fr := decodeForm(t, `{"form_id": "abc123", "token": "tok-2", "answers": []}`)

			f := n.Normalize(fr)

			Convey("Then defaults and placeholders should apply", func() {
				So(f.Email, ShouldBeEmpty)
				So(f.HasEmail(), ShouldBeFalse)
				So(f.ConsentGiven, ShouldBeFalse)
				So(f.EndingTitle, ShouldBeEmpty)
				So(f.EndingKey, ShouldEqual, "unknown")
				So(f.UnknownEnding(), ShouldBeTrue)
				So(f.QuizName, ShouldEqual, "FagerBitQuiz")
				So(f.Source, ShouldEqual, "Website")
				So(f.Language, ShouldEqual, "en")
				So(f.Segment, ShouldEqual, "Newsletter EN")
				So(f.SubmittedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the email only exists as a hidden field", func() {
			fr := decodeForm(t, `{"hidden": {"email": " rider@example.com "}, "answers": []}`)
			f := n.Normalize(fr)
			So(f.Email, ShouldEqual, "rider@example.com")
		})

		Convey("When the hidden email is malformed", func() {
			fr := decodeForm(t, `{"hidden": {"email": "not-an-email"}, "answers": []}`)
			f := n.Normalize(fr)
			So(f.Email, ShouldBeEmpty)
		})

		Convey("When consent is answered on a different question than the pinned ref", func() {
			fr := decodeForm(t, `{
				"answers": [
					{"type": "boolean", "field": {"id": "f9", "ref": "other-ref", "type": "legal"}, "boolean": true}
				]
			}`)

			f := n.Normalize(fr)

			Convey("Then the pinned ref should be authoritative", func() {
				So(f.ConsentGiven, ShouldBeFalse)
			})
		})

		Convey("When the ending arrives via hidden field only", func() {
			fr := decodeForm(t, `{"hidden": {"ending": "Sally Bradoon"}, "answers": []}`)
			f := n.Normalize(fr)
			So(f.EndingTitle, ShouldEqual, "Sally Bradoon")
			So(f.EndingKey, ShouldEqual, "sally_bradoon")
		})

		Convey("When the quiz path hides in a redirect URL", func() {
			fr := decodeForm(t, `{
				"answers": [],
				"definition": {"redirect_url": "https://example.com/sv/category/quiz-young-2"}
			}`)

			f := n.Normalize(fr)
			So(f.QuizPath, ShouldEqual, "category/quiz-young-2")
			So(f.QuizGroup, ShouldEqual, "young")

			Convey("Then the language should come from the URL segment", func() {
				So(f.Language, ShouldEqual, "sv")
			})
		})
	})

	Convey("Given a normalizer without a pinned consent ref", t, func() {
		n := normalize.New()

		Convey("When a legal boolean answer exists", func() {
			fr := decodeForm(t, `{
				"answers": [{"type": "legal", "field": {"id": "f3", "ref": "whatever", "type": "legal"}, "boolean": true}]
			}`)
			So(n.Normalize(fr).ConsentGiven, ShouldBeTrue)
		})

		Convey("When consent is an affirmative hidden value", func() {
			fr := decodeForm(t, `{"hidden": {"consent": "Yes"}, "answers": []}`)
			So(n.Normalize(fr).ConsentGiven, ShouldBeTrue)
		})

		Convey("When nothing indicates consent", func() {
			fr := decodeForm(t, `{"answers": []}`)
			So(n.Normalize(fr).ConsentGiven, ShouldBeFalse)
		})
	})
}

func TestIsTestPing(t *testing.T) {
	Convey("Given Typeform's integration test convention", t, func() {
		Convey("When any sentinel hidden field carries the placeholder", func() {
			for _, key := range []string{"quiz_name", "ending", "source"} {
				fr := decodeForm(t, `{"hidden": {"`+key+`": "hidden_value"}, "answers": []}`)
				So(normalize.IsTestPing(fr), ShouldBeTrue)
			}
		})

		Convey("When hidden fields carry real values", func() {
			fr := decodeForm(t, `{"hidden": {"quiz_name": "FagerBitQuiz"}, "answers": []}`)
			So(normalize.IsTestPing(fr), ShouldBeFalse)
		})
	})
}
