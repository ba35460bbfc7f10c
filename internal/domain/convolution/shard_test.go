package convolution

import (
	"context"
	"testing"

	"github.com/okian/champsim/internal/domain/delta"
	"github.com/okian/champsim/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func mustGenerate(kind scoring.Kind, points []int) delta.Distribution {
	d, err := delta.Generate(scoring.MustTable(kind, points))
	if err != nil {
		panic(err)
	}
	return d
}

func TestStep_DisjointShards(t *testing.T) {
	Convey("Given a folder with four partitions", t, func() {
		f := &folder{partitions: 4}
		dists := []delta.Distribution{
			mustGenerate(scoring.Sprint, []int{8, 7, 6, 5}),
			mustGenerate(scoring.Race, []int{25, 18, 15, 12, 10}),
			mustGenerate(scoring.Race, []int{25, 18, 15, 12, 10}),
		}

		Convey("When every step is run", func() {
			acc := partition(dists[0], f.partitions)
			steps := [][]Distribution{acc}
			for _, next := range dists[1:] {
				var err error
				acc, err = f.step(context.Background(), acc, next)
				So(err, ShouldBeNil)
				steps = append(steps, acc)
			}

			Convey("Then each step's partial maps should be disjoint and owned by their shard", func() {
				for _, parts := range steps {
					So(parts, ShouldHaveLength, 4)
					seen := map[delta.Trio]bool{}
					for i, part := range parts {
						for k := range part {
							So(seen[k], ShouldBeFalse)
							So(shardOf(k, 4), ShouldEqual, i)
							seen[k] = true
						}
					}
				}
			})

			Convey("And the last step should match the sequential fold", func() {
				sequential, err := Fold(dists...)
				So(err, ShouldBeNil)
				So(size(acc), ShouldEqual, len(sequential))
				for _, part := range acc {
					for k, m := range part {
						So(m, ShouldEqual, sequential[k])
					}
				}
			})
		})
	})

	Convey("Given a single partition", t, func() {
		d := mustGenerate(scoring.Sprint, []int{3, 1})

		Convey("Then partition should keep every state in one shard", func() {
			parts := partition(d, 1)
			So(parts, ShouldHaveLength, 1)
			So(parts[0], ShouldResemble, d)
		})
	})
}
