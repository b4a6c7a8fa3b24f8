package directory_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wctimer/server/internal/domain/directory"
	"github.com/wctimer/server/internal/domain/model"
)

type stubRoster struct {
	opponents []model.Opponent
	err       error
	exclude   string
	limit     int
}

func (s *stubRoster) ListOpponents(_ context.Context, excludeID string, limit int) ([]model.Opponent, error) {
	s.exclude = excludeID
	s.limit = limit
	return s.opponents, s.err
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()

	Convey("Given a roster with real accounts", t, func() {
		roster := &stubRoster{opponents: []model.Opponent{
			{ID: "p2", DisplayName: "second"},
			{ID: "p3", DisplayName: "third"},
		}}
		dir := directory.New(roster, directory.WithSeed(7))

		Convey("When picking an opponent", func() {
			opp, err := dir.Pick(ctx, "p1")

			Convey("Then a real account is returned", func() {
				So(err, ShouldBeNil)
				So(opp.Placeholder, ShouldBeFalse)
				So(opp.ID, ShouldBeIn, "p2", "p3")
			})

			Convey("Then the player itself was excluded at the roster", func() {
				So(roster.exclude, ShouldEqual, "p1")
				So(roster.limit, ShouldEqual, directory.DefaultSampleSize)
			})
		})
	})

	Convey("Given an empty roster", t, func() {
		dir := directory.New(&stubRoster{}, directory.WithSeed(7))

		Convey("When picking an opponent", func() {
			opp, err := dir.Pick(ctx, "p1")

			Convey("Then a placeholder is fabricated", func() {
				So(err, ShouldBeNil)
				So(opp.Placeholder, ShouldBeTrue)
				So(strings.HasPrefix(opp.ID, "bot-"), ShouldBeTrue)
				So(opp.DisplayName, ShouldNotBeEmpty)
			})
		})
	})

	Convey("Given a failing roster", t, func() {
		boom := errors.New("roster down")
		dir := directory.New(&stubRoster{err: boom})

		Convey("When picking an opponent", func() {
			opp, err := dir.Pick(ctx, "p1")

			Convey("Then the round still gets a placeholder", func() {
				So(err, ShouldBeNil)
				So(opp.Placeholder, ShouldBeTrue)
			})
		})
	})

	Convey("Given a custom sample size", t, func() {
		roster := &stubRoster{opponents: []model.Opponent{{ID: "p2"}}}
		dir := directory.New(roster, directory.WithSampleSize(3))

		Convey("When picking an opponent", func() {
			_, err := dir.Pick(ctx, "p1")

			Convey("Then the roster is queried with the override", func() {
				So(err, ShouldBeNil)
				So(roster.limit, ShouldEqual, 3)
			})
		})
	})
}
