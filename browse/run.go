package browse

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"rflow/config"
	"rflow/paginate"
	"rflow/session"
	"rflow/state"
)

// Run is browse command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("browse")

	src := cmd.Args().First()
	if len(src) == 0 {
		return errors.New("nothing to browse, SOURCE is required")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	if err := env.LoadUserCSS(&env.Cfg.Renderer); err != nil {
		return err
	}
	opts := session.OptionsFromConfig(env.Cfg, env.UserCSS)
	if w, h := cmd.Int("width"), cmd.Int("height"); w > 0 && h > 0 {
		opts.Renderer.Width, opts.Renderer.Height = int(w), int(h)
	}

	s, err := session.Start(ctx, src, opts, env.Log)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()

	events, stop := session.Watch(s.Pager, 16)
	defer stop()

	m := New(ctx, s.Pager, Options{
		Title:  s.Work.Title,
		Units:  s.Work.Units(),
		Events: events,
		Text:   s.Host.VisibleText,
		Mounted: func(u paginate.ContentUnit) {
			env.StoreUnit(filepath.Base(src), u, s.Host.Mounted())
		},
		Viewport: paginate.Size{Width: opts.Renderer.Width, Height: opts.Renderer.Height},
		Resize:   s.Host.Resize,
		Lookup:   s.Work.Lookup,
	})

	// terminal belongs to the interface now
	config.MuteConsole(true)
	defer config.MuteConsole(false)

	log.Debug("Browsing work", zap.String("source", src), zap.String("title", s.Work.Title))
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal interface failed: %w", err)
	}
	return nil
}
