package builders

import (
	"errors"

	"github.com/modelpad/modelpad/core"
)

// NextSingle creates next and hasNext functions from a provided single value.
func NextSingle(value any) (func() (core.Row, error), func() bool) {
	has := true

	next := func() (core.Row, error) {
		if !has {
			return nil, errors.New("no next row")
		}
		has = false
		return core.Row{value}, nil
	}

	hasNext := func() bool {
		return has
	}

	return next, hasNext
}

// NextRows creates next and hasNext functions over materialized rows.
// preprocess is an optional per-row hook applied before handing the row out.
func NextRows(rows []core.Row, preprocess func(core.Row) core.Row) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(rows)
	}

	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, errors.New("no next row")
		}

		row := rows[index]
		if preprocess != nil {
			row = preprocess(row)
		}
		index++
		return row, nil
	}

	return next, hasNext
}

// NextNil creates next and hasNext functions that don't return anything (no rows).
func NextNil() (func() (core.Row, error), func() bool) {
	hasNext := func() bool {
		return false
	}

	next := func() (core.Row, error) {
		return nil, errors.New("no next row")
	}

	return next, hasNext
}
