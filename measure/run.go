package measure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rflow/config"
	"rflow/paginate"
	"rflow/session"
	"rflow/state"
)

// Run is measure command action.
func Run(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("measure")

	sources := cmd.Args().Slice()
	if len(sources) == 0 {
		return errors.New("no works to measure, at least one SOURCE is required")
	}

	format := env.Cfg.Report.Format
	if f := cmd.String("format"); len(f) > 0 {
		var err error
		if format, err = config.ParseReportFormat(f); err != nil {
			return fmt.Errorf("unable to use requested format: %w", err)
		}
	}
	w, err := NewWriter(format, env.Cfg.Report.LineTemplate)
	if err != nil {
		return err
	}

	if err := env.LoadUserCSS(&env.Cfg.Renderer); err != nil {
		return err
	}
	opts := session.OptionsFromConfig(env.Cfg, env.UserCSS)

	jobs := int(cmd.Int("jobs"))
	if jobs <= 0 {
		jobs = min(len(sources), runtime.NumCPU())
	}

	results := make([]WorkResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = measureWork(gctx, env, src, opts, log)
			// only interruption stops the batch
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("measuring interrupted: %w", err)
	}

	if err := output(cmd.String("out"), w, format, results, log); err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if len(r.Error) > 0 {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d works could not be measured", failed, len(results))
	}
	return nil
}

func measureWork(ctx context.Context, env *state.LocalEnv, src string, opts session.Options, log *zap.Logger) WorkResult {
	res := WorkResult{Source: src}

	s, err := session.Start(ctx, src, opts, env.Log)
	if err != nil {
		log.Error("Unable to open work", zap.String("source", src), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn("Unable to close session cleanly", zap.String("source", src), zap.Error(err))
		}
	}()
	res.Title, res.Format = s.Work.Title, s.Work.Format.String()

	log.Info("Measuring work", zap.String("source", src), zap.String("title", res.Title), zap.Int("units", s.Work.Len()))

	// load timeout covers navigation only, settling adds to it
	timeout := 2*opts.Renderer.LoadTimeout + opts.Pagination.SettleDelay
	mounted := func(u paginate.ContentUnit) {
		env.StoreUnit(filepath.Base(src), u, s.Host.Mounted())
	}
	res.Units, err = walk(ctx, s.Pager, s.Work.Units(), timeout, mounted, log)
	if err != nil {
		log.Error("Unable to measure work", zap.String("source", src), zap.Error(err))
		res.Error = err.Error()
	}
	res.total()
	return res
}

// output writes results to stdout, a file or, when destination is an existing
// directory, a file per work.
func output(dest string, w *Writer, format config.ReportFormat, results []WorkResult, log *zap.Logger) error {
	if len(dest) == 0 {
		return w.Write(os.Stdout, results)
	}

	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		for _, r := range results {
			name := filepath.Join(dest, config.CleanFileName(filepath.Base(r.Source))+format.Ext())
			if err := writeFile(name, w, []WorkResult{r}); err != nil {
				return err
			}
			log.Info("Results written", zap.String("source", r.Source), zap.String("file", name))
		}
		return nil
	}
	if err := writeFile(dest, w, results); err != nil {
		return err
	}
	log.Info("Results written", zap.String("file", dest))
	return nil
}

func writeFile(name string, w *Writer, results []WorkResult) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create destination file '%s': %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to close destination file '%s': %w", name, cerr)
		}
	}()
	return w.Write(f, results)
}
