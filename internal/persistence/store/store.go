// Package store keeps clan state in three JSON documents under one
// directory. Each document is written atomically.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/notdash999-netizen/simple-clans-mod/internal/clans/engine"
)

const (
	ClansFile   = "clans.json"
	PlayersFile = "players.json"
	TimersFile  = "timers.json"
)

type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Store { return &Store{dir: dir} }

func (s *Store) Dir() string { return s.dir }

// ReadDocs reads whichever documents exist. Missing files yield empty
// documents; a present but unreadable file is an error.
func (s *Store) ReadDocs() (Docs, error) {
	var d Docs
	if err := readJSON(filepath.Join(s.dir, ClansFile), &d.Clans); err != nil {
		return d, err
	}
	if err := readJSON(filepath.Join(s.dir, PlayersFile), &d.Players); err != nil {
		return d, err
	}
	if err := readJSON(filepath.Join(s.dir, TimersFile), &d.Timers); err != nil {
		return d, err
	}
	return d, nil
}

// Load decodes the persisted state.
func (s *Store) Load() (engine.State, []string, error) {
	d, err := s.ReadDocs()
	if err != nil {
		return engine.State{}, nil, err
	}
	st, warns := Decode(d)
	return st, warns, nil
}

func (s *Store) Save(st engine.State) error {
	return s.WriteDocs(Encode(st))
}

func (s *Store) WriteDocs(d Docs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, ClansFile), d.Clans); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(s.dir, PlayersFile), d.Players); err != nil {
		return err
	}
	return writeJSON(filepath.Join(s.dir, TimersFile), d.Timers)
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Persister saves engine state in the background, coalescing bursts of
// changes into one write. A pending change is saved within maxWait even
// when changes keep arriving.
type Persister struct {
	store    *Store
	source   func() engine.State
	logger   *log.Logger
	debounce time.Duration
	maxWait  time.Duration

	persistCh    chan struct{}
	persistFlush chan chan struct{}
	persistStop  chan struct{}
	wg           sync.WaitGroup
	closeOnce    sync.Once

	mu     sync.Mutex
	saves  int
	lastOK time.Time
}

func NewPersister(s *Store, source func() engine.State, debounce, maxWait time.Duration, logger *log.Logger) *Persister {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	if maxWait < debounce {
		maxWait = 10 * debounce
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Persister{
		store:        s,
		source:       source,
		logger:       logger,
		debounce:     debounce,
		maxWait:      maxWait,
		persistCh:    make(chan struct{}, 1),
		persistFlush: make(chan chan struct{}, 8),
		persistStop:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// Schedule requests a save. It never blocks.
func (p *Persister) Schedule() {
	select {
	case p.persistCh <- struct{}{}:
	default:
	}
}

func (p *Persister) loop() {
	defer p.wg.Done()
	var timer *time.Timer
	var deadline time.Time
	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
	}
	for {
		var timerCh <-chan time.Time
		if timer != nil {
			timerCh = timer.C
		}
		select {
		case <-p.persistStop:
			stopTimer()
			p.persistNow()
			return
		case <-p.persistCh:
			now := time.Now()
			if timer == nil {
				deadline = now.Add(p.maxWait)
			}
			wait := p.debounce
			if left := deadline.Sub(now); left < wait {
				wait = left
			}
			if wait < 0 {
				wait = 0
			}
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(wait)
			}
		case ack := <-p.persistFlush:
			stopTimer()
			p.persistNow()
			if ack != nil {
				close(ack)
			}
		case <-timerCh:
			stopTimer()
			p.persistNow()
		}
	}
}

func (p *Persister) persistNow() {
	if err := p.store.Save(p.source()); err != nil {
		p.logger.Printf("persist: %v", err)
		return
	}
	p.mu.Lock()
	p.saves++
	p.lastOK = time.Now()
	p.mu.Unlock()
}

// Flush writes the current state and waits for the write to finish.
func (p *Persister) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case p.persistFlush <- ack:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Saves reports how many writes succeeded.
func (p *Persister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}

// Close performs a final save and stops the loop.
func (p *Persister) Close() {
	p.closeOnce.Do(func() {
		close(p.persistStop)
		p.wg.Wait()
	})
}
