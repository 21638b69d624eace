package fetcher

import (
	"context"
	"time"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
)

// CaptchaState is the lifecycle of one challenge encounter. State is local
// to the current page's fetch and never persisted.
type CaptchaState string

const (
	CaptchaNone            CaptchaState = "none"
	CaptchaDetected        CaptchaState = "detected"
	CaptchaWaitingForSolve CaptchaState = "waiting_for_solve"
	CaptchaSolved          CaptchaState = "solved"
	CaptchaTimedOut        CaptchaState = "timed_out"
)

// ChallengeProbe reports whether a challenge signal is currently present on
// the page. The browser session supplies a rod-backed probe; tests inject
// fakes.
type ChallengeProbe func() (bool, error)

// CaptchaGate suspends the pipeline while an anti-bot challenge is up,
// deferring the solve to a human operator. Challenges are detected, never
// solved programmatically.
type CaptchaGate struct {
	pollInterval time.Duration
	timeout      time.Duration
	settleDelay  time.Duration
	state        CaptchaState
	logger       *observability.Logger
}

func NewCaptchaGate(cfg *config.Config, logger *observability.Logger) *CaptchaGate {
	return &CaptchaGate{
		pollInterval: cfg.GetCaptchaPollInterval(),
		timeout:      cfg.GetCaptchaTimeout(),
		settleDelay:  cfg.GetCaptchaSettleDelay(),
		state:        CaptchaNone,
		logger:       logger,
	}
}

// State returns the gate's current state.
func (g *CaptchaGate) State() CaptchaState {
	return g.state
}

// Reset returns the gate to None. Called at the start of every page: a
// session already past one challenge is not challenge-free on later pages.
func (g *CaptchaGate) Reset() {
	g.state = CaptchaNone
}

// Pass drives the state machine for the current page. No signal leaves the
// state at None. A present signal moves Detected -> WaitingForSolve, then
// the gate polls until the signal clears (Solved, after a settle period) or
// the wait window elapses (TimedOut, returning ErrCaptchaTimeout — the one
// internally-triggered run abort).
func (g *CaptchaGate) Pass(ctx context.Context, probe ChallengeProbe) error {
	present, err := probe()
	if err != nil {
		// A failing probe is indistinguishable from a broken page; let the
		// caller treat it as a page-scoped failure.
		return err
	}
	if !present {
		return nil
	}

	g.state = CaptchaDetected
	g.logger.Warn("anti-bot challenge detected, manual solve required",
		"timeout", g.timeout.String(),
	)
	g.state = CaptchaWaitingForSolve

	deadline := time.Now().Add(g.timeout)
	for time.Now().Before(deadline) {
		select {
		case <-time.After(g.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		present, err = probe()
		if err != nil {
			// Keep polling: probe hiccups while the operator interacts with
			// the page are expected.
			continue
		}
		if present {
			continue
		}

		// Signal gone. Give the post-challenge redirect a moment to land.
		if g.settleDelay > 0 {
			select {
			case <-time.After(g.settleDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		g.state = CaptchaSolved
		g.logger.Info("challenge cleared, resuming")
		return nil
	}

	g.state = CaptchaTimedOut
	return ErrCaptchaTimeout
}
