// Package credentials loads the application id and secret from a YAML file
// and keeps them current while the file changes on disk.
package credentials

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const DefaultReloadDelay = 500 * time.Millisecond

var (
	ErrIncomplete = errors.New("credentials require app_id and app_secret")
	ErrNotWatched = errors.New("static credentials cannot be watched")
	ErrWatching   = errors.New("credentials are already being watched")
)

type Credentials struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
}

func (c Credentials) validate() error {
	if c.AppID == "" || c.AppSecret == "" {
		return ErrIncomplete
	}
	return nil
}

// Load reads and validates a credentials file.
func Load(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, err
	}

	var c Credentials
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return Credentials{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Store holds the current credentials. A store created with NewStore can
// follow its file with Watch; reloads that fail keep the last good values.
type Store struct {
	path  string
	delay time.Duration

	mu      sync.RWMutex
	current Credentials

	watchMu sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
	onLoad  func(Credentials, error)
}

type StoreOption func(*Store)

// WithReloadDelay sets how long the store waits after the last file event
// before reloading.
func WithReloadDelay(d time.Duration) StoreOption {
	return func(s *Store) { s.delay = d }
}

// WithReloadHook registers a function called after each reload attempt.
func WithReloadHook(fn func(Credentials, error)) StoreOption {
	return func(s *Store) { s.onLoad = fn }
}

func NewStore(
	path string,
	opts ...StoreOption,
) (
	*Store,
	error,
) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{
		path:    path,
		delay:   DefaultReloadDelay,
		current: c,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Static returns a store that always yields c.
func Static(c Credentials) *Store {
	return &Store{current: c}
}

func (s *Store) Get() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Watch starts following the credentials file. The parent directory is
// watched so that editors replacing the file by rename are noticed. A store
// follows its file at most once until Close.
func (s *Store) Watch() error {
	if s.path == "" {
		return ErrNotWatched
	}

	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return ErrWatching
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return err
	}

	done := make(chan struct{})
	s.watcher = watcher
	s.done = done

	reload := make(chan struct{}, 1)
	go s.scheduleReload(reload, done)
	go s.handleWatcher(watcher, reload, done)
	return nil
}

// Close stops watching. It is safe to call more than once.
func (s *Store) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

func (s *Store) reload() {
	c, err := Load(s.path)
	if err == nil {
		s.mu.Lock()
		s.current = c
		s.mu.Unlock()
	} else {
		log.Printf("credentials reload failed, keeping previous values: %v\n", err)
	}
	if s.onLoad != nil {
		s.onLoad(c, err)
	}
}

func (s *Store) handleWatcher(
	watcher *fsnotify.Watcher,
	reload chan<- struct{},
	done <-chan struct{},
) {
	target := filepath.Clean(s.path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Rename) {
				select {
				case reload <- struct{}{}:
				default:
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("credentials watcher error: %v\n", err)
		case <-done:
			return
		}
	}
}

func (s *Store) scheduleReload(
	reload <-chan struct{},
	done <-chan struct{},
) {
	var timer *time.Timer = nil
	var c <-chan time.Time = nil
	for {
		select {
		case <-reload:
			if timer != nil {
				timer.Reset(s.delay)
			} else {
				timer = time.NewTimer(s.delay)
				c = timer.C
			}

		case <-c:
			c = nil
			timer = nil
			s.reload()

		case <-done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
