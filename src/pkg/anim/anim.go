// Package anim runs tick-driven transitions of drawables. Each object has at
// most one running transition; starting another cancels it.
package anim

import (
	"sync"
	"time"

	"inkboard/src/pkg/model"
)

// Token identifies a started transition.
type Token struct {
	mu        sync.Mutex
	cancelled bool
	finished  bool
}

// Cancel stops the transition before its next step. The done callback of a
// cancelled transition never runs.
func (t *Token) Cancel() {
	t.mu.Lock()
	t.cancelled = true
	t.mu.Unlock()
}

// Cancelled reports whether the transition was cancelled.
func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Finished reports whether the transition ran to completion.
func (t *Token) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

type transition struct {
	token    *Token
	elapsed  time.Duration
	duration time.Duration
	step     func(progress float32)
	done     func()
}

// Scheduler advances transitions on Tick.
type Scheduler struct {
	mu      sync.Mutex
	running map[string]*transition
}

// NewScheduler creates an idle Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{running: make(map[string]*transition)}
}

// Start runs step with progress in (0,1] on every tick until duration has
// elapsed, then calls done. step or done may be nil. A transition already
// running under key is cancelled.
func (s *Scheduler) Start(key string, duration time.Duration, step func(progress float32), done func()) *Token {
	tok := &Token{}
	s.mu.Lock()
	if prev, ok := s.running[key]; ok {
		prev.token.Cancel()
	}
	s.running[key] = &transition{token: tok, duration: duration, step: step, done: done}
	s.mu.Unlock()
	return tok
}

// Cancel stops the transition running under key, if any.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	if tr, ok := s.running[key]; ok {
		tr.token.Cancel()
		delete(s.running, key)
	}
	s.mu.Unlock()
}

// Running returns the number of live transitions.
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Tick advances every transition by dt. Callbacks run outside the lock so
// that they may start new transitions.
func (s *Scheduler) Tick(dt time.Duration) {
	type call struct {
		tr       *transition
		progress float32
		last     bool
	}
	var calls []call

	s.mu.Lock()
	for key, tr := range s.running {
		if tr.token.Cancelled() {
			delete(s.running, key)
			continue
		}
		tr.elapsed += dt
		progress := float32(1)
		if tr.duration > 0 && tr.elapsed < tr.duration {
			progress = float32(tr.elapsed) / float32(tr.duration)
		}
		last := progress >= 1
		if last {
			delete(s.running, key)
		}
		calls = append(calls, call{tr, progress, last})
	}
	s.mu.Unlock()

	for _, c := range calls {
		if c.tr.token.Cancelled() {
			continue
		}
		if c.tr.step != nil {
			c.tr.step(c.progress)
		}
		if c.last && !c.tr.token.Cancelled() {
			c.tr.token.mu.Lock()
			c.tr.token.finished = true
			c.tr.token.mu.Unlock()
			if c.tr.done != nil {
				c.tr.done()
			}
		}
	}
}

// startFor runs a transition of d. It stops on the first step after d has
// been destroyed, without calling step.
func (s *Scheduler) startFor(d *model.Drawable, duration time.Duration, step func(progress float32), update func()) *Token {
	var tok *Token
	tok = s.Start(d.ID, duration, func(p float32) {
		if d.State == model.StateDestroyed {
			tok.Cancel()
			s.forget(d.ID, tok)
			return
		}
		step(p)
		if update != nil {
			update()
		}
	}, nil)
	return tok
}

// forget drops the transition under key if it is still the one of tok.
func (s *Scheduler) forget(key string, tok *Token) {
	s.mu.Lock()
	if tr, ok := s.running[key]; ok && tr.token == tok {
		delete(s.running, key)
	}
	s.mu.Unlock()
}

// Move slides d to the planar offset to. update runs after each step.
func (s *Scheduler) Move(d *model.Drawable, to model.Vec3, duration time.Duration, update func()) *Token {
	from := d.Transform.Position
	return s.startFor(d, duration, func(p float32) {
		d.Transform.Position = from.Lerp(to, p)
	}, update)
}

// Scale grows or shrinks d to scale.
func (s *Scheduler) Scale(d *model.Drawable, scale model.Vec3, duration time.Duration, update func()) *Token {
	from := d.Transform.Scale
	return s.startFor(d, duration, func(p float32) {
		d.Transform.Scale = from.Lerp(scale, p)
	}, update)
}

// Fade moves the alpha of the main color of d to alpha.
func (s *Scheduler) Fade(d *model.Drawable, alpha float32, duration time.Duration, update func()) *Token {
	c := colorOf(d)
	if c == nil {
		return s.Start(d.ID, 0, nil, nil)
	}
	from := c.A
	return s.startFor(d, duration, func(p float32) {
		c.A = from + (alpha-from)*p
	}, update)
}

// DeleteAfter calls remove once delay has elapsed, unless cancelled or
// replaced by another transition of d.
func (s *Scheduler) DeleteAfter(d *model.Drawable, delay time.Duration, remove func()) *Token {
	return s.Start(d.ID, delay, nil, remove)
}

func colorOf(d *model.Drawable) *model.Color {
	switch {
	case d.Line != nil:
		return &d.Line.PrimaryColor
	case d.Text != nil:
		return &d.Text.FontColor
	case d.Image != nil:
		return &d.Image.Tint
	case d.Node != nil:
		return &d.Node.Label.FontColor
	}
	return nil
}
