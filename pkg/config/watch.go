package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it changes on disk and
// invokes onChange with the freshly loaded Config. Watch itself reloads
// everything and leaves deciding what to apply live to onChange; the
// daemon's callback applies only the log level and format.
//
// Watch blocks until ctx is canceled. A reload that fails to parse or
// validate is reported through onErr rather than torn down; the prior
// configuration stays in effect until a valid file appears.
func Watch(ctx context.Context, path string, onChange func(*Config), onErr func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				if onErr != nil {
					onErr(err)
				}
				continue
			}
			if onChange != nil {
				onChange(cfg)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onErr != nil {
				onErr(err)
			}
		}
	}
}
