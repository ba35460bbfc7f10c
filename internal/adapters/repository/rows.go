package repository

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/okian/champsim/internal/domain/outcome"
	"github.com/okian/champsim/internal/domain/ties"
	"github.com/okian/champsim/internal/domain/types"
)

// outcomeArgs flattens r in outcomeColumns order.
func outcomeArgs(r outcome.Record) ([]any, error) {
	if r.Multiplicity > math.MaxInt64 {
		return nil, fmt.Errorf("%w: multiplicity %d", ErrOutOfRange, r.Multiplicity)
	}
	args := make([]any, 0, len(outcomeColumns))
	for _, group := range [][types.DriverCount]int{
		r.DeltaPoints, r.DeltaWins, r.DeltaSeconds, r.DeltaThirds, r.FinalPoints, r.FinalWins,
	} {
		for _, v := range group {
			args = append(args, v)
		}
	}
	return append(args, r.Champion.String(), r.Criterion.String(), int64(r.Multiplicity)), nil
}

func scanOutcome(rows *sql.Rows) (outcome.Record, error) {
	var (
		r         outcome.Record
		champion  string
		criterion string
		mult      int64
	)
	dest := make([]any, 0, len(outcomeColumns))
	for _, group := range []*[types.DriverCount]int{
		&r.DeltaPoints, &r.DeltaWins, &r.DeltaSeconds, &r.DeltaThirds, &r.FinalPoints, &r.FinalWins,
	} {
		for i := range group {
			dest = append(dest, &group[i])
		}
	}
	dest = append(dest, &champion, &criterion, &mult)
	if err := rows.Scan(dest...); err != nil {
		return r, err
	}
	var err error
	if r.Champion, err = types.ParseDriver(champion); err != nil {
		return r, fmt.Errorf("%w: %w", ErrCorruptRow, err)
	}
	if r.Criterion, err = types.ParseCriterion(criterion); err != nil {
		return r, fmt.Errorf("%w: %w", ErrCorruptRow, err)
	}
	if mult < 0 {
		return r, fmt.Errorf("%w: negative multiplicity %d", ErrCorruptRow, mult)
	}
	r.Multiplicity = uint64(mult)
	return r, nil
}

// tieArgs flattens r in tieColumns order.
func tieArgs(r ties.Record) []any {
	args := make([]any, 0, len(tieColumns))
	for _, group := range [][types.DriverCount]int{r.First, r.Second, r.Points, r.Gains} {
		for _, v := range group {
			args = append(args, v)
		}
	}
	return append(args, r.TiePoints, string(r.Kind), r.TiedLabel(), r.Leader.String(), r.Criterion.String())
}

func scanTie(rows *sql.Rows) (ties.Record, error) {
	var (
		r         ties.Record
		kind      string
		tied      string
		leader    string
		criterion string
	)
	dest := make([]any, 0, len(tieColumns))
	for _, group := range []*[types.DriverCount]int{
		(*[types.DriverCount]int)(&r.First), (*[types.DriverCount]int)(&r.Second), &r.Points, &r.Gains,
	} {
		for i := range group {
			dest = append(dest, &group[i])
		}
	}
	dest = append(dest, &r.TiePoints, &kind, &tied, &leader, &criterion)
	if err := rows.Scan(dest...); err != nil {
		return r, err
	}
	var err error
	if r.Kind, err = ties.ParseKind(kind); err != nil {
		return r, fmt.Errorf("%w: %w", ErrCorruptRow, err)
	}
	if r.Tied, err = ties.ParseLabel(tied); err != nil {
		return r, fmt.Errorf("%w: %w", ErrCorruptRow, err)
	}
	if r.Leader, err = types.ParseDriver(leader); err != nil {
		return r, fmt.Errorf("%w: %w", ErrCorruptRow, err)
	}
	if r.Criterion, err = types.ParseCriterion(criterion); err != nil {
		return r, fmt.Errorf("%w: %w", ErrCorruptRow, err)
	}
	return r, nil
}
