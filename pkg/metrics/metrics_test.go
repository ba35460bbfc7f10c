package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should use the champsim namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "champsim")
				So(manager.subsystem, ShouldEqual, "simulation")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.runs.WithLabelValues("outcomes", ResultComputed).Inc()

			Convey("Then metrics should carry the custom names and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_runs_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When passing empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "champsim")
				So(manager.subsystem, ShouldEqual, "simulation")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
				So(manager.constLabels, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording runs", func() {
			before := testutil.ToFloat64(globalManager.runs.WithLabelValues("outcomes", ResultSkipped))
			So(RecordRun("outcomes", ResultSkipped), ShouldBeNil)

			Convey("Then the counter should increase by one", func() {
				after := testutil.ToFloat64(globalManager.runs.WithLabelValues("outcomes", ResultSkipped))
				So(after-before, ShouldEqual, 1)
			})
		})

		Convey("When recording an unknown result", func() {
			err := RecordRun("outcomes", "maybe")

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, ErrUnknownResult), ShouldBeTrue)
			})
		})

		Convey("When updating run size and population", func() {
			UpdateRunSize("outcomes", 1234, 551_400_000)
			UpdatePopulated("outcomes", true)

			Convey("Then the gauges should hold the values", func() {
				So(testutil.ToFloat64(globalManager.states.WithLabelValues("outcomes")), ShouldEqual, 1234)
				So(testutil.ToFloat64(globalManager.combos.WithLabelValues("outcomes")), ShouldEqual, 551_400_000)
				So(testutil.ToFloat64(globalManager.populated.WithLabelValues("outcomes")), ShouldEqual, 1)
			})

			Convey("And clearing population should reset the gauge", func() {
				UpdatePopulated("outcomes", false)
				So(testutil.ToFloat64(globalManager.populated.WithLabelValues("outcomes")), ShouldEqual, 0)
			})
		})

		Convey("When recording fold steps and store writes", func() {
			steps := testutil.ToFloat64(globalManager.foldSteps)
			rows := testutil.ToFloat64(globalManager.storeRowsWritten.WithLabelValues("ties"))
			RecordFoldStep(25*time.Millisecond, 42)
			RecordStoreWrite("ties", 10, time.Second)
			RecordStoreQuery("summary", time.Millisecond)
			RecordStoreError("replace")
			RecordRunDuration("ties", 2*time.Second)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.foldSteps)-steps, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.foldStepStates), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.storeRowsWritten.WithLabelValues("ties"))-rows, ShouldEqual, 10)
			})
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/summary", "GET", "200")
				RecordHTTPRequestDuration("/summary", "GET", "200", 1.5)
				RecordHTTPRequest("", "", "200")
			}, ShouldNotPanic)

			before := testutil.ToFloat64(globalManager.httpErrors.WithLabelValues("/outcomes", "GET", "client_error"))
			RecordHTTPError("/outcomes", "GET", "client_error")
			So(testutil.ToFloat64(globalManager.httpErrors.WithLabelValues("/outcomes", "GET", "client_error"))-before, ShouldEqual, 1)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then only our metrics should be present", func() {
				So(err, ShouldBeNil)
				for _, f := range families {
					So(f.GetName(), ShouldStartWith, "champsim_simulation_")
				}
			})
		})
	})
}

func TestMillis(t *testing.T) {
	Convey("Given durations", t, func() {
		So(millis(1500*time.Microsecond), ShouldEqual, 1.5)
		So(millis(0), ShouldEqual, 0)
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given metrics concurrency", t, func() {
		Convey("When recording metrics concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						RecordFoldStep(time.Duration(j)*time.Microsecond, j)
						RecordHTTPRequest("/test", "GET", "200")
						_ = RecordRun("concurrency", ResultComputed)
					}
				}()
			}
			wg.Wait()

			Convey("Then every increment should be counted", func() {
				So(testutil.ToFloat64(globalManager.runs.WithLabelValues("concurrency", ResultComputed)), ShouldEqual, 1000)
			})
		})
	})
}
