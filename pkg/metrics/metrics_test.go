package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	if c := out.GetCounter(); c != nil {
		return c.GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with defaults", func() {
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should carry the default configuration", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "faceoff")
				So(manager.subsystem, ShouldEqual, "ranking")
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithRefreshInterval(time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "unit")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 2, 3})
				So(manager.RefreshInterval(), ShouldEqual, time.Second)
			})
		})

		Convey("When passing empty option values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "faceoff")
				So(manager.subsystem, ShouldEqual, "ranking")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestRankingMetrics(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When an outcome is applied", func() {
			before := value(globalManager.outcomesApplied)
			RecordOutcomeApplied(16)

			Convey("Then the outcome counter should increase by one", func() {
				So(value(globalManager.outcomesApplied), ShouldEqual, before+1)
			})
		})

		Convey("When an outcome fails", func() {
			c := globalManager.outcomeErrors.WithLabelValues("not_found")
			before := value(c)
			RecordOutcomeError("not_found")

			Convey("Then the labelled counter should increase", func() {
				So(value(c), ShouldEqual, before+1)
			})
		})

		Convey("When pool gauges are updated", func() {
			UpdateItemsTotal(42)
			UpdateTopRating(1512.5)

			Convey("Then they should hold the latest values", func() {
				So(value(globalManager.itemsTotal), ShouldEqual, 42)
				So(value(globalManager.topRating), ShouldEqual, 1512.5)
			})
		})

		Convey("When recording the remaining metrics", func() {
			So(func() {
				RecordItemAdmitted()
				RecordPairSelected(10)
				RecordBallotDuplicate()
				RecordRepositoryUpdateLatency("memory", 0.2)
				RecordRepositoryQueryLatency("sqlite", 1.5)
				UpdateQueueSize(3)
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueRejected("full")
				RecordWorkerLatency(2)
				RecordWorkerError()
				UpdateWorkerActive(4)
				RecordStandingsReport()
				RecordHTTPRequest("/stats", "GET", "200", 1.2)
				RecordErrorByComponent("service", "storage")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})

		Convey("When gathering from the registry", func() {
			RecordItemAdmitted()
			families, err := GetRegistry().Gather()

			Convey("Then the service metrics should be present", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "faceoff_ranking_items_admitted_total")
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent writers", t, func() {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordOutcomeApplied(float64(j % 32))
					UpdateQueueSize(j)
					RecordHTTPRequest("/healthz", "GET", "200", float64(j))
				}
			}()
		}
		wg.Wait()

		So(value(globalManager.outcomesApplied), ShouldBeGreaterThanOrEqualTo, 1000)
	})
}
