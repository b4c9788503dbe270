package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/fagerbits/quizrelay/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func fact(mutate func(*normalize.Fact)) normalize.Fact {
	f := normalize.Fact{
		Email:       "rider@example.com",
		EndingTitle: "HildaMaria",
		EndingKey:   "hildamaria",
		QuizPath:    "category/quiz-snaffle-36",
		QuizGroup:   "snaffle",
		QuizName:    "FagerBitQuiz",
		Source:      "Website",
		HorseName:   "Lansett",
		Language:    "en",
		Segment:     "Newsletter EN",
		Country:     "",
		SubmittedAt: time.Date(2024, 8, 1, 10, 30, 0, 0, time.UTC),
		FormID:      "abc123",
		ResponseID:  "tok-1",
	}
	if mutate != nil {
		mutate(&f)
	}
	return f
}

func TestMergedProperties(t *testing.T) {
	Convey("Given the property merge", t, func() {
		Convey("When the profile has no prior properties", func() {
			props := mergedProperties(fact(nil), nil, 100)

			So(props["ending_title"], ShouldEqual, "HildaMaria")
			So(props["ending_key"], ShouldEqual, "hildamaria")
			So(props["quiz_path"], ShouldEqual, "category/quiz-snaffle-36")
			So(props["horse_name"], ShouldEqual, "Lansett")
			So(props["last_quiz_completed"], ShouldEqual, "2024-08-01T10:30:00Z")

			history := props["quiz_history"].([]any)
			So(len(history), ShouldEqual, 1)
		})

		Convey("When the new submission resolved less than the profile already has", func() {
			existing := map[string]any{
				"ending_title": "Old Ending",
				"ending_key":   "old_ending",
				"quiz_path":    "product/soft-sweet-iron",
				"horse_name":   "Old Horse",
			}
			f := fact(func(f *normalize.Fact) {
				f.EndingTitle = ""
				f.EndingKey = "unknown"
				f.QuizPath = ""
				f.QuizGroup = ""
				f.HorseName = ""
			})

			props := mergedProperties(f, existing, 100)

			Convey("Then existing values survive instead of being blanked", func() {
				So(props["ending_title"], ShouldEqual, "Old Ending")
				So(props["ending_key"], ShouldEqual, "old_ending")
				So(props["quiz_path"], ShouldEqual, "product/soft-sweet-iron")
				So(props["horse_name"], ShouldEqual, "Old Horse")
			})
		})

		Convey("When the new submission resolved more than the profile has", func() {
			existing := map[string]any{"ending_title": "Old Ending", "quiz_path": "product/old"}
			props := mergedProperties(fact(nil), existing, 100)

			Convey("Then new values win", func() {
				So(props["ending_title"], ShouldEqual, "HildaMaria")
				So(props["quiz_path"], ShouldEqual, "category/quiz-snaffle-36")
			})
		})

		Convey("When only the history remembers a value", func() {
			existing := map[string]any{
				"quiz_history": []any{
					map[string]any{"ending": "FromHistory", "horse": "HistoryHorse"},
				},
			}
			f := fact(func(f *normalize.Fact) {
				f.EndingTitle = ""
				f.EndingKey = "unknown"
				f.HorseName = ""
			})

			props := mergedProperties(f, existing, 100)

			Convey("Then the latest history entry fills the gap", func() {
				So(props["ending_title"], ShouldEqual, "FromHistory")
				So(props["horse_name"], ShouldEqual, "HistoryHorse")
			})
		})

		Convey("When the history is at its cap", func() {
			prior := make([]any, 0, 5)
			for i := 0; i < 5; i++ {
				prior = append(prior, map[string]any{"ending_key": fmt.Sprintf("e%d", i)})
			}
			existing := map[string]any{"quiz_history": prior}

			props := mergedProperties(fact(nil), existing, 5)
			history := props["quiz_history"].([]any)

			Convey("Then the new entry pushes out the oldest", func() {
				So(len(history), ShouldEqual, 5)
				So(history[0].(map[string]any)["ending_key"], ShouldEqual, "hildamaria")
				So(history[4].(map[string]any)["ending_key"], ShouldEqual, "e3")
			})
		})

		Convey("When the stored history has an unexpected shape", func() {
			existing := map[string]any{"quiz_history": "corrupted"}
			props := mergedProperties(fact(nil), existing, 100)

			history := props["quiz_history"].([]any)
			So(len(history), ShouldEqual, 1)
		})
	})
}

func TestBuildHistoryEntry(t *testing.T) {
	Convey("Given a history entry", t, func() {
		Convey("When all facts resolved", func() {
			entry := buildHistoryEntry(fact(nil))
			So(entry["date"], ShouldEqual, "2024-08-01T10:30:00Z")
			So(entry["ending"], ShouldEqual, "HildaMaria")
			So(entry["quiz_group"], ShouldEqual, "snaffle")
			So(entry["typeform_response_id"], ShouldEqual, "tok-1")
		})

		Convey("When optional facts are missing", func() {
			entry := buildHistoryEntry(fact(func(f *normalize.Fact) {
				f.EndingTitle = ""
				f.QuizPath = ""
				f.QuizGroup = ""
				f.HorseName = ""
			}))

			Convey("Then their keys are absent rather than empty", func() {
				_, hasEnding := entry["ending"]
				_, hasPath := entry["quiz_path"]
				_, hasHorse := entry["horse"]
				So(hasEnding, ShouldBeFalse)
				So(hasPath, ShouldBeFalse)
				So(hasHorse, ShouldBeFalse)
			})
		})
	})
}
