package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const watchDebounce = 200 * time.Millisecond

var keyExtensions = map[string]bool{".asc": true, ".gpg": true, ".pgp": true, ".key": true}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("inbox", "", "directory to watch (default inbox_dir from config)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Import keys dropped into an inbox directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		inbox, _ := cmd.Flags().GetString("inbox")
		if inbox == "" {
			inbox = cfg.InboxDir
		}
		if inbox == "" {
			return cmd.Help()
		}
		if err := os.MkdirAll(inbox, 0o700); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		w := &inboxWatcher{
			inbox:    inbox,
			debounce: watchDebounce,
			handle: func(path string) {
				importFile(ctx, s, path)
			},
		}
		log.Info("watching inbox", zap.String("dir", inbox))
		return w.run(ctx)
	},
}

func importFile(ctx context.Context, s *session, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("read key file", zap.String("path", path), zap.Error(err))
		return
	}
	v, err := s.call(ctx, "import", s.ctx, string(data))
	if err != nil {
		log.Warn("import failed", zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("imported", zap.String("path", path), zap.Any("result", v))
	if err := os.Remove(path); err != nil {
		log.Warn("remove imported file", zap.String("path", path), zap.Error(err))
	}
}

// inboxWatcher hands each new key file to handle once writes settle.
type inboxWatcher struct {
	handle   func(path string)
	inbox    string
	debounce time.Duration
}

func (w *inboxWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.inbox); err != nil {
		return err
	}

	// Files already present are handled first.
	pending := make(map[string]bool)
	if entries, err := os.ReadDir(w.inbox); err == nil {
		for _, e := range entries {
			if !e.IsDir() && isKeyFile(e.Name()) {
				pending[filepath.Join(w.inbox, e.Name())] = true
			}
		}
	}

	timer := time.NewTimer(w.debounce)
	if len(pending) == 0 {
		timer.Stop()
	}
	defer timer.Stop()

	flush := func() {
		for p := range pending {
			w.handle(p)
		}
		pending = make(map[string]bool)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			flush()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isKeyFile(event.Name) {
				continue
			}
			pending[event.Name] = true

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}

func isKeyFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return keyExtensions[strings.ToLower(filepath.Ext(base))]
}
