package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"rflow/config"
	"rflow/paginate"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())
	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
}

func TestEnvFromContext_PanicsWithoutEnv(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when env not in context")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	time.Sleep(10 * time.Millisecond)
	if uptime := env.Uptime(); uptime < 10*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 10ms", uptime)
	}
}

func TestLocalEnv_RedirectStdLog(t *testing.T) {
	t.Run("with logger", func(t *testing.T) {
		env := &LocalEnv{
			Log: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1))),
		}
		for i := range 3 {
			env.RedirectStdLog()
			if env.restoreStdLog == nil {
				t.Errorf("Iteration %d: restoreStdLog not set", i)
			}
			env.RestoreStdLog()
		}
	})

	t.Run("without logger", func(t *testing.T) {
		env := &LocalEnv{}
		env.RedirectStdLog()
		if env.restoreStdLog != nil {
			t.Error("Expected restoreStdLog to remain nil")
		}
		env.RestoreStdLog()
	})
}

func TestUnitReportName(t *testing.T) {
	tests := []struct {
		work string
		unit paginate.ContentUnit
		want string
	}{
		{"My Book", paginate.ContentUnit{Href: "text/ch01.xhtml", Index: 3}, "units/my-book/003-text-ch01-xhtml.xhtml"},
		{"book.epub", paginate.ContentUnit{Href: "Title.html"}, "units/book-epub/000-title-html.xhtml"},
	}
	for _, tt := range tests {
		if got := UnitReportName(tt.work, tt.unit); got != tt.want {
			t.Errorf("UnitReportName(%q, %+v) = %s, want %s", tt.work, tt.unit, got, tt.want)
		}
	}
}

func TestLocalEnv_StoreUnit(t *testing.T) {
	env := &LocalEnv{}
	// no report requested
	env.StoreUnit("book", paginate.ContentUnit{Href: "c.xhtml"}, []byte("<html/>"))

	dest := filepath.Join(t.TempDir(), "report.zip")
	rpt, err := (&config.ReporterConfig{Destination: dest}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt
	unit := paginate.ContentUnit{Href: "c.xhtml", Index: 1}
	env.StoreUnit("book", unit, []byte("<html/>"))
	env.StoreUnit("book", paginate.ContentUnit{Href: "empty.xhtml"}, nil)
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	rc, err := fixzip.OpenReader(dest)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer rc.Close()
	names := make(map[string]bool)
	for _, f := range rc.File {
		names[f.Name] = true
	}
	if !names[UnitReportName("book", unit)] {
		t.Errorf("report entries = %v", names)
	}
	if len(names) != 2 || !names[config.ManifestName] {
		t.Errorf("expected manifest and one unit, got %v", names)
	}
}

func TestLocalEnv_LoadUserCSS(t *testing.T) {
	env := &LocalEnv{}
	if err := env.LoadUserCSS(&config.RendererConfig{}); err != nil || env.UserCSS != nil {
		t.Errorf("LoadUserCSS() without path = %v, %q", err, env.UserCSS)
	}

	p := filepath.Join(t.TempDir(), "user.css")
	if err := os.WriteFile(p, []byte("body { color: red }"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := env.LoadUserCSS(&config.RendererConfig{StylesheetPath: p}); err != nil {
		t.Fatalf("LoadUserCSS() error = %v", err)
	}
	if string(env.UserCSS) != "body { color: red }" {
		t.Errorf("UserCSS = %q", env.UserCSS)
	}
	if err := env.LoadUserCSS(&config.RendererConfig{StylesheetPath: filepath.Join(t.TempDir(), "none.css")}); err == nil {
		t.Error("expected error for missing stylesheet")
	}
}
