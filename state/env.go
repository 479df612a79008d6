// Package state defines shared program state.
package state

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"rflow/config"
	"rflow/paginate"
)

type envKey struct{}

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// user stylesheet from renderer configuration, loaded once
	UserCSS []byte

	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// UnitReportName returns name under which mounted content unit is kept in
// debug report.
func UnitReportName(work string, unit paginate.ContentUnit) string {
	return path.Join("units", slug.Make(work), fmt.Sprintf("%03d-%s.xhtml", unit.Index, slug.Make(unit.Href)))
}

// StoreUnit saves document mounted for content unit into debug report, does
// nothing when report was not requested.
func (e *LocalEnv) StoreUnit(work string, unit paginate.ContentUnit, data []byte) {
	if e.Rpt == nil || len(data) == 0 {
		return
	}
	e.Rpt.StoreData(UnitReportName(work, unit), data)
}
