package earnings_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wctimer/server/internal/domain/earnings"
)

func TestEarnings(t *testing.T) {
	Convey("Given a configured salary", t, func() {
		// 3168.00/month over 22 days x 8h: exactly 0.5 cents per second.
		s := earnings.Salary{
			MonthlyCents:     316_800,
			WorkDaysPerMonth: 22,
			WorkHoursPerDay:  8,
		}

		Convey("Then the per-second rate is derived from worked seconds", func() {
			So(earnings.PerSecondRate(s), ShouldAlmostEqual, 0.5, 1e-9)
		})

		Convey("Then a ten-minute session earns 300 cents", func() {
			So(earnings.ForDuration(s, 600), ShouldEqual, 300)
		})

		Convey("Then sub-cent remainders are truncated", func() {
			So(earnings.ForDuration(s, 3), ShouldEqual, 1)
			So(earnings.ForDuration(s, 1), ShouldEqual, 0)
		})

		Convey("Then non-positive durations earn nothing", func() {
			So(earnings.ForDuration(s, 0), ShouldEqual, 0)
			So(earnings.ForDuration(s, -10), ShouldEqual, 0)
		})
	})

	Convey("Given an unconfigured salary", t, func() {
		var s earnings.Salary

		Convey("Then defaults are substituted", func() {
			n := s.Normalize()
			So(n.MonthlyCents, ShouldEqual, earnings.DefaultMonthlySalaryCents)
			So(n.WorkDaysPerMonth, ShouldEqual, earnings.DefaultWorkDaysPerMonth)
			So(n.WorkHoursPerDay, ShouldEqual, earnings.DefaultWorkHoursPerDay)
		})

		Convey("Then sessions are still priced", func() {
			So(earnings.ForDuration(s, 600), ShouldBeGreaterThan, 0)
		})
	})
}
