package state

import (
	"fmt"
	"time"

	"rflow/config"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

// LoadUserCSS reads user stylesheet configured for the renderer.
func (e *LocalEnv) LoadUserCSS(rc *config.RendererConfig) error {
	data, err := rc.Stylesheet()
	if err != nil {
		return fmt.Errorf("unable to load user stylesheet: %w", err)
	}
	e.UserCSS = data
	return nil
}
