// Package measure paginates every content unit of one or more works and
// reports column and spread counts.
package measure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rflow/paginate"
	"rflow/session"
)

// ErrTimeout is reported when paginator does not settle content unit in time.
var ErrTimeout = errors.New("content unit was not paginated in time")

// UnitResult is pagination of a single content unit.
type UnitResult struct {
	Index       int    `yaml:"index"`
	Ref         string `yaml:"ref"`
	Href        string `yaml:"href"`
	Columns     int    `yaml:"columns"`
	Spreads     int    `yaml:"spreads"`
	ColumnWidth int    `yaml:"column_width"`
	Error       string `yaml:"error,omitempty"`
}

// WorkResult is pagination of a whole work.
type WorkResult struct {
	Source  string       `yaml:"source"`
	Title   string       `yaml:"title,omitempty"`
	Format  string       `yaml:"format,omitempty"`
	Columns int          `yaml:"columns"`
	Spreads int          `yaml:"spreads"`
	Units   []UnitResult `yaml:"units,omitempty"`
	Error   string       `yaml:"error,omitempty"`
}

func (w *WorkResult) total() {
	w.Columns, w.Spreads = 0, 0
	for _, u := range w.Units {
		w.Columns += u.Columns
		w.Spreads += u.Spreads
	}
}

// walk opens units one by one and waits for each to be paginated. Units
// which failed to load are reported and skipped. mounted is called for every
// successfully paginated unit while it is still active.
func walk(ctx context.Context, p *paginate.Paginator, units []paginate.ContentUnit, timeout time.Duration, mounted func(paginate.ContentUnit), log *zap.Logger) ([]UnitResult, error) {
	events, stop := session.Watch(p, 4)
	defer stop()

	res := make([]UnitResult, 0, len(units))
	for _, u := range units {
		r := UnitResult{Index: u.Index, Ref: u.Ref, Href: u.Href}

		p.OpenUnit(u)
		e, err := waitUnit(ctx, events, u, timeout)
		if err != nil {
			return res, fmt.Errorf("%s: %w", u.Href, err)
		}
		switch e := e.(type) {
		case paginate.PaginationChanged:
			st := p.Snapshot().State
			r.Spreads, r.Columns, r.ColumnWidth = e.Spreads, st.ColumnCount, st.ColumnWidth
			if mounted != nil {
				mounted(u)
			}
		case paginate.ContentLoadFailed:
			r.Error = e.Err.Error()
		}
		log.Debug("Content unit measured", zap.String("unit", u.Ref), zap.Int("columns", r.Columns), zap.Int("spreads", r.Spreads))
		res = append(res, r)
	}
	return res, nil
}

// waitUnit returns first event concerning unit, events of other units are
// leftovers of earlier steps and ignored.
func waitUnit(ctx context.Context, events <-chan paginate.Event, u paginate.ContentUnit, timeout time.Duration) (paginate.Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrTimeout
		case e := <-events:
			switch e := e.(type) {
			case paginate.PaginationChanged:
				if e.Unit.Same(u) {
					return e, nil
				}
			case paginate.ContentLoadFailed:
				if e.Unit.Same(u) {
					return e, nil
				}
			}
		}
	}
}
