package config_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/faceoff/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.SQLitePath, convey.ShouldEqual, "faceoff.db")
			convey.So(cfg.DefaultRating, convey.ShouldEqual, 1400.0)
			convey.So(cfg.PairPoolLimit, convey.ShouldEqual, 10)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.StandingsCron, convey.ShouldEqual, "@every 1m")
			convey.So(cfg.StandingsTop, convey.ShouldEqual, 3)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with a negative rating", t, func() {
		cfg := config.New(context.Background())
		cfg.DefaultRating = -250

		convey.Convey("Then Validate should accept it", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a config with a non-finite rating", t, func() {
		for _, r := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			cfg := config.New(context.Background())
			cfg.DefaultRating = r

			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "DefaultRating")
		}
	})

	convey.Convey("Given a config with too small a pair pool", t, func() {
		cfg := config.New(context.Background())
		cfg.PairPoolLimit = 1

		convey.Convey("Then Validate should wrap ErrInvalidConfig", func() {
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "PairPoolLimit")
		})
	})
}
