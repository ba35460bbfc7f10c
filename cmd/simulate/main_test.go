package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

const smallSeason = `
log_level: error
sprint_points: [3, 1]
race_points: [3, 1]
standings:
  norris: {points: 10, wins: 0, seconds: 0, thirds: 0}
  piastri: {points: 10, wins: 0, seconds: 0, thirds: 0}
  verstappen: {points: 9, wins: 0, seconds: 0, thirds: 0}
events:
  - {name: "Sprint", kind: sprint}
  - {name: "Race", kind: race}
tie_events: ["Sprint", "Race"]
`

func setupSeason(t *testing.T) string {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "season.yaml")
	if err := os.WriteFile(cfgPath, []byte(smallSeason), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHAMPSIM_CONFIG", cfgPath)
	t.Setenv("CHAMPSIM_DB_PATH", filepath.Join(dir, "season.db"))
	return dir
}

func TestRun(t *testing.T) {
	convey.Convey("Given a small season configuration", t, func() {
		setupSeason(t)
		ctx := context.Background()

		convey.Convey("When simulating twice", func() {
			var first, second, stderr bytes.Buffer
			code1 := run(ctx, []string{"-ties"}, &first, &stderr)
			code2 := run(ctx, []string{"-ties"}, &second, &stderr)

			convey.Convey("Then the first run should populate both tables", func() {
				convey.So(code1, convey.ShouldEqual, exitOK)
				convey.So(first.String(), convey.ShouldContainSubstring, "championship_outcomes populated")
				convey.So(first.String(), convey.ShouldContainSubstring, "tie_scenarios populated")
				convey.So(first.String(), convey.ShouldContainSubstring, "L. Norris")
			})

			convey.Convey("And the second run should reuse them", func() {
				convey.So(code2, convey.ShouldEqual, exitOK)
				convey.So(second.String(), convey.ShouldContainSubstring, "championship_outcomes already populated")
				convey.So(second.String(), convey.ShouldContainSubstring, "tie_scenarios already populated")
			})
		})

		convey.Convey("When forcing a run", func() {
			var out, stderr bytes.Buffer
			convey.So(run(ctx, nil, &out, &stderr), convey.ShouldEqual, exitOK)
			out.Reset()
			code := run(ctx, []string{"-force"}, &out, &stderr)

			convey.Convey("Then the table should be recomputed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(out.String(), convey.ShouldContainSubstring, "169 combinations")
			})
		})

		convey.Convey("When projecting a result", func() {
			var out, stderr bytes.Buffer
			code := run(ctx, []string{"-project", `{"Race":{"verstappen":1}}`}, &out, &stderr)

			convey.Convey("Then the projected champion should be printed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(out.String(), convey.ShouldContainSubstring, "Champion: M. Verstappen")
			})
		})

		convey.Convey("When projecting with an unknown driver", func() {
			var out, stderr bytes.Buffer
			code := run(ctx, []string{"-project", `{"Race":{"hamilton":1}}`}, &out, &stderr)

			convey.Convey("Then the command should fail", func() {
				convey.So(code, convey.ShouldEqual, exitFailure)
			})
		})
	})
}

func TestRunFlags(t *testing.T) {
	convey.Convey("Given the simulate command", t, func() {
		ctx := context.Background()

		convey.Convey("When asking for help", func() {
			var out, stderr bytes.Buffer
			code := run(ctx, []string{"-help"}, &out, &stderr)

			convey.Convey("Then usage should be printed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(out.String(), convey.ShouldContainSubstring, "-force")
				convey.So(out.String(), convey.ShouldContainSubstring, "CHAMPSIM_CONFIG")
			})
		})

		convey.Convey("When passing an unknown flag", func() {
			var out, stderr bytes.Buffer
			code := run(ctx, []string{"-bogus"}, &out, &stderr)

			convey.Convey("Then the command should fail", func() {
				convey.So(code, convey.ShouldEqual, exitFailure)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("CHAMPSIM_BATCH_SIZE", "0")
			var out, stderr bytes.Buffer
			code := run(ctx, nil, &out, &stderr)

			convey.Convey("Then the command should fail before touching the store", func() {
				convey.So(code, convey.ShouldEqual, exitFailure)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "failed to load config")
			})
		})
	})
}
