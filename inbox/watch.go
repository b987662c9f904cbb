package inbox

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lucasjlepore/cmj-analyzer/hawkin"
	"github.com/lucasjlepore/cmj-analyzer/logger"
)

// DefaultSettle is how long both files of a pair must stay unchanged before
// the pair is emitted.
const DefaultSettle = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Settle time.Duration
	Logger logger.Logger
	// SkipExisting suppresses pairs already present when the watch starts.
	SkipExisting bool
}

type pending struct {
	name      hawkin.Name
	force     string
	velocity  string
	lastEvent time.Time
	emitted   bool
}

// Watch monitors the force and velocity subdirectories of dir and calls
// onPair once a jump has both exports and neither changed for Settle.
// A pair whose file is rewritten later is emitted again. Watch runs until
// ctx is cancelled.
func Watch(ctx context.Context, dir string, opts WatchOptions, onPair func(Pair)) error {
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	forceDir := filepath.Join(dir, ForceDir)
	velocityDir := filepath.Join(dir, VelocityDir)
	for _, d := range []string{forceDir, velocityDir} {
		if err := watcher.Add(d); err != nil {
			return err
		}
	}

	state := map[string]*pending{}
	existing, _, err := Scan(dir)
	if err != nil {
		return err
	}
	for _, p := range existing {
		state[p.Name.Key] = &pending{name: p.Name, force: p.ForcePath, velocity: p.VelocityPath, emitted: true}
		if !opts.SkipExisting {
			onPair(p)
		}
	}
	log.Info(ctx, "inbox: watching for exports", logger.String("dir", dir), logger.Int("existing_pairs", len(existing)))

	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, err := hawkin.Parse(event.Name)
			if err != nil {
				log.Debug(ctx, "inbox: ignoring file", logger.String("path", event.Name), logger.Error(err))
				continue
			}
			p, ok := state[name.Key]
			if !ok {
				p = &pending{name: name}
				state[name.Key] = p
			}
			switch filepath.Dir(event.Name) {
			case forceDir:
				p.force = event.Name
			case velocityDir:
				p.velocity = event.Name
			}
			p.lastEvent = time.Now()
			p.emitted = false

		case now := <-ticker.C:
			for _, p := range state {
				if p.emitted || p.force == "" || p.velocity == "" || now.Sub(p.lastEvent) < settle {
					continue
				}
				p.emitted = true
				log.Info(ctx, "inbox: pair ready", logger.String("jump", p.name.Key))
				onPair(Pair{Name: p.name, ForcePath: p.force, VelocityPath: p.velocity})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "inbox: watcher error", logger.Error(err))
		}
	}
}
