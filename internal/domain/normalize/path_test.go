package normalize_test

import (
	"testing"

	"github.com/fagerbits/quizrelay/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeQuizPath(t *testing.T) {
	Convey("Given the quiz path normalizer", t, func() {
		Convey("When the path carries a scheme and host", func() {
			So(normalize.NormalizeQuizPath("https://example.com/global/category/quiz-young-2"),
				ShouldEqual, "category/quiz-young-2")
		})

		Convey("When the path carries locale and namespace prefixes", func() {
			So(normalize.NormalizeQuizPath("/sv/category/quiz-snaffle-36"), ShouldEqual, "category/quiz-snaffle-36")
			So(normalize.NormalizeQuizPath("global/product/soft-bit"), ShouldEqual, "product/soft-bit")
			So(normalize.NormalizeQuizPath("knowledge-base/bit-fitting/guide"), ShouldEqual, "knowledge-base/bit-fitting/guide")
		})

		Convey("When the path is already normalized", func() {
			So(normalize.NormalizeQuizPath("category/quiz-young-2"), ShouldEqual, "category/quiz-young-2")
		})

		Convey("When the root is not a known taxonomy root", func() {
			So(normalize.NormalizeQuizPath("blog/quiz-young-2"), ShouldBeEmpty)
			So(normalize.NormalizeQuizPath("https://example.com/about"), ShouldBeEmpty)
			So(normalize.NormalizeQuizPath(""), ShouldBeEmpty)
			So(normalize.NormalizeQuizPath("/"), ShouldBeEmpty)
		})
	})
}

func TestQuizGroup(t *testing.T) {
	Convey("Given the quiz group extractor", t, func() {
		Convey("When the path contains a known shorthand group", func() {
			So(normalize.QuizGroup("category/quiz-young-2"), ShouldEqual, "young")
			So(normalize.QuizGroup("category/quiz-snaffle-36"), ShouldEqual, "snaffle")
		})

		Convey("When the group is outside the vocabulary", func() {
			So(normalize.QuizGroup("category/quiz-mystery-9"), ShouldBeEmpty)
		})

		Convey("When the path has no shorthand", func() {
			So(normalize.QuizGroup("product/soft-bit"), ShouldBeEmpty)
			So(normalize.QuizGroup(""), ShouldBeEmpty)
		})
	})
}
