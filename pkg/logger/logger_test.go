package logger

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerGlobals(t *testing.T) {
	Convey("Given the logger package", t, func() {
		Convey("When Get is called without Init", func() {
			l := Get()

			Convey("Then a usable logger is returned", func() {
				So(l, ShouldNotBeNil)
				So(func() {
					l.Info(context.Background(), "hello", String("k", "v"))
				}, ShouldNotPanic)
			})
		})

		Convey("When Init is called", func() {
			So(Init(), ShouldBeNil)
			So(Get(), ShouldNotBeNil)
		})

		Convey("When deriving a named logger", func() {
			l := Named("component")

			So(l, ShouldNotBeNil)
			So(func() {
				l.Debug(context.Background(), "scoped message")
			}, ShouldNotPanic)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given the level parser", t, func() {
		Convey("Then known levels are accepted", func() {
			for _, level := range []string{"debug", "info", "warn", "warning", "error", "", "INFO", " Debug "} {
				So(SetLevelString(level), ShouldBeNil)
			}
		})

		Convey("And unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("Cleanup restores info", func() {
			So(SetLevelString("info"), ShouldBeNil)
		})
	})
}

func TestFieldConstructors(t *testing.T) {
	Convey("Given the field constructors", t, func() {
		So(String("k", "v").Key, ShouldEqual, "k")
		So(Int("n", 3).Value, ShouldEqual, 3)
		So(Float64("f", 1.5).Value, ShouldEqual, 1.5)
		So(Any("a", []int{1}).Key, ShouldEqual, "a")

		err := errors.New("boom")
		f := Error(err)
		So(f.Key, ShouldEqual, "error")
		So(f.Value, ShouldEqual, err)
	})
}
