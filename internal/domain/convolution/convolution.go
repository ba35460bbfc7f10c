// Package convolution folds per-event delta distributions into the
// distribution over combined deltas across all remaining events.
//
// Combination sums Trio keys and multiplies multiplicities. It is associative
// and commutative, so the fold may run in any order or be split across
// disjoint partitions of the output key space.
package convolution

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/okian/champsim/internal/domain/delta"
)

// Sentinel kinds for aggregation errors.
var (
	ErrNoEvents             = errors.New("no event distributions to fold")
	ErrOverflow             = errors.New("multiplicity overflow")
	ErrMultiplicityMismatch = errors.New("multiplicity mismatch")
)

// Distribution is the per-event or accumulated state distribution.
type Distribution = delta.Distribution

// Total returns the sum of multiplicities in d.
func Total(d Distribution) (uint64, error) {
	var total uint64
	for _, m := range d {
		var carry uint64
		total, carry = bits.Add64(total, m, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: summing %d states", ErrOverflow, len(d))
		}
	}
	return total, nil
}

// Expected returns the product of the per-event totals: the size of the raw
// constrained cross product.
func Expected(dists ...Distribution) (uint64, error) {
	if len(dists) == 0 {
		return 0, ErrNoEvents
	}
	product := uint64(1)
	for i, d := range dists {
		t, err := Total(d)
		if err != nil {
			return 0, err
		}
		hi, lo := bits.Mul64(product, t)
		if hi != 0 {
			return 0, fmt.Errorf("%w: raw space exceeds uint64 at event %d", ErrOverflow, i)
		}
		product = lo
	}
	return product, nil
}

// Reconcile checks that got carries exactly the multiplicity of the raw
// cross product of dists.
func Reconcile(got Distribution, dists ...Distribution) error {
	return ReconcileShards([]Distribution{got}, dists...)
}

// Combine convolves a with b.
func Combine(a, b Distribution) (Distribution, error) {
	out := make(Distribution, len(a))
	if err := combineInto(out, a, b); err != nil {
		return nil, err
	}
	return out, nil
}

// combineInto accumulates the convolution of a with b into out.
func combineInto(out, a, b Distribution) error {
	for ka, ma := range a {
		for kb, mb := range b {
			hi, contrib := bits.Mul64(ma, mb)
			if hi != 0 {
				return fmt.Errorf("%w: %d x %d", ErrOverflow, ma, mb)
			}
			key := ka.Add(kb)
			sum, carry := bits.Add64(out[key], contrib, 0)
			if carry != 0 {
				return fmt.Errorf("%w: accumulating state", ErrOverflow)
			}
			out[key] = sum
		}
	}
	return nil
}

// Fold convolves dists left to right, starting from the first one, and
// reconciles the result against the raw cross-product size.
func Fold(dists ...Distribution) (Distribution, error) {
	if len(dists) == 0 {
		return nil, ErrNoEvents
	}
	acc := clone(dists[0])
	for _, next := range dists[1:] {
		combined, err := Combine(acc, next)
		if err != nil {
			return nil, err
		}
		acc = combined
	}
	if err := Reconcile(acc, dists...); err != nil {
		return nil, err
	}
	return acc, nil
}

// StepFunc observes each fold step: the 1-based index of the event just
// folded in and the number of distinct states afterwards.
type StepFunc func(step, states int)

// Option configures FoldParallel.
type Option func(*folder)

type folder struct {
	partitions int
	onStep     StepFunc
}

// WithPartitions sets how many output shards, and workers, each step uses.
func WithPartitions(n int) Option {
	return func(f *folder) {
		if n > 0 {
			f.partitions = n
		}
	}
}

// WithStepHook registers a callback invoked after every fold step.
func WithStepHook(fn StepFunc) Option {
	return func(f *folder) {
		if fn != nil {
			f.onStep = fn
		}
	}
}

// FoldParallel computes the same result as Fold as a single distribution.
// It joins the shards produced by FoldShards.
func FoldParallel(ctx context.Context, dists []Distribution, opts ...Option) (Distribution, error) {
	shards, err := FoldShards(ctx, dists, opts...)
	if err != nil {
		return nil, err
	}
	if len(shards) == 1 {
		return shards[0], nil
	}
	out := make(Distribution, size(shards))
	for i, s := range shards {
		for k, m := range s {
			out[k] = m
		}
		shards[i] = nil
	}
	return out, nil
}

// FoldShards folds dists and returns the result split by key into disjoint
// shards, one per partition. Every step runs one worker per shard; each worker
// scans the whole product of the running distribution with the next event and
// keeps only the keys that hash to its shard, so peak memory stays that of a
// sequential fold.
func FoldShards(ctx context.Context, dists []Distribution, opts ...Option) ([]Distribution, error) {
	if len(dists) == 0 {
		return nil, ErrNoEvents
	}
	f := &folder{partitions: runtime.NumCPU()}
	for _, opt := range opts {
		opt(f)
	}

	acc := partition(dists[0], f.partitions)
	if f.onStep != nil {
		f.onStep(1, size(acc))
	}
	for i, next := range dists[1:] {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fold cancelled: %w", err)
		}
		combined, err := f.step(ctx, acc, next)
		if err != nil {
			return nil, err
		}
		acc = combined
		if f.onStep != nil {
			f.onStep(i+2, size(acc))
		}
	}
	if err := ReconcileShards(acc, dists...); err != nil {
		return nil, err
	}
	return acc, nil
}

// ReconcileShards is Reconcile over a distribution split into disjoint shards.
func ReconcileShards(shards []Distribution, dists ...Distribution) error {
	want, err := Expected(dists...)
	if err != nil {
		return err
	}
	var have uint64
	for _, s := range shards {
		t, err := Total(s)
		if err != nil {
			return err
		}
		var carry uint64
		have, carry = bits.Add64(have, t, 0)
		if carry != 0 {
			return fmt.Errorf("%w: summing %d shards", ErrOverflow, len(shards))
		}
	}
	if have != want {
		return fmt.Errorf("%w: folded total %d, raw space %d", ErrMultiplicityMismatch, have, want)
	}
	return nil
}

// step convolves every shard of acc with next. Worker i owns output shard i.
func (f *folder) step(ctx context.Context, acc []Distribution, next Distribution) ([]Distribution, error) {
	n := f.partitions
	out := make([]Distribution, n)
	hint := size(acc) / n
	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		g.Go(func() error {
			own := make(Distribution, hint)
			for _, part := range acc {
				if err := gctx.Err(); err != nil {
					return err
				}
				for ka, ma := range part {
					for kb, mb := range next {
						key := ka.Add(kb)
						if n > 1 && shardOf(key, n) != i {
							continue
						}
						hi, contrib := bits.Mul64(ma, mb)
						if hi != 0 {
							return fmt.Errorf("%w: %d x %d", ErrOverflow, ma, mb)
						}
						sum, carry := bits.Add64(own[key], contrib, 0)
						if carry != 0 {
							return fmt.Errorf("%w: accumulating state", ErrOverflow)
						}
						own[key] = sum
					}
				}
			}
			out[i] = own
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// partition splits d into n disjoint shards by key.
func partition(d Distribution, n int) []Distribution {
	if n <= 1 {
		return []Distribution{clone(d)}
	}
	parts := make([]Distribution, n)
	for i := range parts {
		parts[i] = make(Distribution, len(d)/n+1)
	}
	for k, m := range d {
		parts[shardOf(k, n)][k] = m
	}
	return parts
}

// shardOf maps key to one of n shards with FNV-1a over its counters.
func shardOf(key delta.Trio, n int) int {
	h := uint64(14695981039346656037)
	for _, d := range key {
		for _, v := range [4]int{d.Points, d.Wins, d.Seconds, d.Thirds} {
			h ^= uint64(v)
			h *= 1099511628211
		}
	}
	return int(h % uint64(n))
}

func size(shards []Distribution) int {
	n := 0
	for _, s := range shards {
		n += len(s)
	}
	return n
}

func clone(d Distribution) Distribution {
	out := make(Distribution, len(d))
	for k, m := range d {
		out[k] = m
	}
	return out
}
