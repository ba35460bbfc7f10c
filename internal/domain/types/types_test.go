package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	types "github.com/okian/champsim/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDriver(t *testing.T) {
	Convey("Given the declared contenders", t, func() {
		Convey("When listing them", func() {
			drivers := types.Drivers()

			Convey("Then they should be in declaration order", func() {
				So(drivers[0], ShouldEqual, types.Norris)
				So(drivers[1], ShouldEqual, types.Piastri)
				So(drivers[2], ShouldEqual, types.Verstappen)
			})
		})

		Convey("When formatting them", func() {
			Convey("Then ids should be lowercase", func() {
				So(types.Norris.String(), ShouldEqual, "norris")
				So(types.Piastri.String(), ShouldEqual, "piastri")
				So(types.Verstappen.String(), ShouldEqual, "verstappen")
			})

			Convey("And display names should be abbreviated", func() {
				So(types.Verstappen.DisplayName(), ShouldEqual, "M. Verstappen")
			})

			Convey("And an out-of-range value should not panic", func() {
				d := types.Driver(7)
				So(d.Valid(), ShouldBeFalse)
				So(d.String(), ShouldEqual, "driver(7)")
			})
		})

		Convey("When parsing ids", func() {
			Convey("Then known ids should round-trip regardless of case", func() {
				for _, d := range types.Drivers() {
					parsed, err := types.ParseDriver(d.String())
					So(err, ShouldBeNil)
					So(parsed, ShouldEqual, d)
				}
				parsed, err := types.ParseDriver("  Piastri ")
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, types.Piastri)
			})

			Convey("And an unknown id should be rejected", func() {
				_, err := types.ParseDriver("hamilton")
				So(err, ShouldNotBeNil)
				So(errors.Is(err, types.ErrUnknownDriver), ShouldBeTrue)
			})
		})
	})
}

func TestCriterion(t *testing.T) {
	Convey("Given the deciding criteria", t, func() {
		Convey("Then they should be listed in priority order", func() {
			So(types.Criteria(), ShouldResemble, []types.Criterion{
				types.ByPoints, types.ByWins, types.BySeconds, types.ByThirds, types.FullyTied,
			})
		})

		Convey("Then their stored names should parse back", func() {
			for _, c := range types.Criteria() {
				parsed, err := types.ParseCriterion(c.String())
				So(err, ShouldBeNil)
				So(parsed, ShouldEqual, c)
			}
			So(types.FullyTied.String(), ShouldEqual, "fully_tied")
		})

		Convey("Then an unknown name should be rejected", func() {
			_, err := types.ParseCriterion("coin_toss")
			So(errors.Is(err, types.ErrUnknownCriterion), ShouldBeTrue)
		})
	})
}

func TestStandings(t *testing.T) {
	Convey("Given standings", t, func() {
		s := types.Standings{
			types.Norris:     {Points: 390, Wins: 7, Seconds: 6, Thirds: 4},
			types.Piastri:    {Points: 366, Wins: 7, Seconds: 4, Thirds: 3},
			types.Verstappen: {Points: 366, Wins: 6, Seconds: 4, Thirds: 3},
		}

		Convey("When copying them and changing the copy", func() {
			c := s
			c[types.Norris].Points = 0

			Convey("Then the original should be unchanged", func() {
				So(s.Of(types.Norris).Points, ShouldEqual, 390)
			})
		})
	})
}

func TestTextEncoding(t *testing.T) {
	Convey("Given a value holding a driver and a criterion", t, func() {
		type row struct {
			Champion  types.Driver            `json:"champion"`
			Criterion types.Criterion         `json:"criterion"`
			Counts    map[types.Driver]uint64 `json:"counts"`
		}
		in := row{Champion: types.Piastri, Criterion: types.BySeconds, Counts: map[types.Driver]uint64{types.Norris: 3}}

		Convey("When encoding it as JSON", func() {
			b, err := json.Marshal(in)
			So(err, ShouldBeNil)

			Convey("Then names should be used and decode back", func() {
				So(string(b), ShouldEqual, `{"champion":"piastri","criterion":"seconds","counts":{"norris":3}}`)
				var out row
				So(json.Unmarshal(b, &out), ShouldBeNil)
				So(out, ShouldResemble, in)
			})
		})

		Convey("When decoding an unknown driver", func() {
			var d types.Driver
			err := json.Unmarshal([]byte(`"hamilton"`), &d)

			Convey("Then it should fail", func() {
				So(errors.Is(err, types.ErrUnknownDriver), ShouldBeTrue)
			})
		})
	})
}
