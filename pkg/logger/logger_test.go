package logger_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wctimer/server/pkg/logger"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)
		ctx := context.Background()

		Convey("When fetching the global logger", func() {
			l := logger.Get()
			So(l, ShouldNotBeNil)

			Convey("Then logging at every level should not panic", func() {
				So(func() {
					l.Debug(ctx, "debug line", logger.String("k", "v"))
					l.Info(ctx, "info line", logger.Int("clicks", 4))
					l.Warn(ctx, "warn line", logger.Int64("kaki", 42))
					l.Error(ctx, "error line", logger.Error(nil))
				}, ShouldNotPanic)
			})
		})

		Convey("When creating a named logger", func() {
			l := logger.Named("duel")
			So(l, ShouldNotBeNil)
			So(func() { l.Info(ctx, "named line") }, ShouldNotPanic)
		})

		Convey("When setting textual levels", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("WARN"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
			So(logger.SetLevelString("loud"), ShouldNotBeNil)
			So(logger.SetLevelString("info"), ShouldBeNil)
		})
	})
}
