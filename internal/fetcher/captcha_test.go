package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"yad2-rental-scraper/internal/observability"
)

func testGate(timeout time.Duration) *CaptchaGate {
	return &CaptchaGate{
		pollInterval: 5 * time.Millisecond,
		timeout:      timeout,
		settleDelay:  0,
		state:        CaptchaNone,
		logger:       observability.NewNop(),
	}
}

func TestGateNoChallenge(t *testing.T) {
	gate := testGate(time.Second)

	err := gate.Pass(context.Background(), func() (bool, error) { return false, nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.State() != CaptchaNone {
		t.Errorf("state should stay %s, got %s", CaptchaNone, gate.State())
	}
}

func TestGateSolvedWhenSignalClears(t *testing.T) {
	gate := testGate(time.Second)

	calls := 0
	probe := func() (bool, error) {
		calls++
		// Present on detection and the first poll, cleared afterwards.
		return calls <= 2, nil
	}

	if err := gate.Pass(context.Background(), probe); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.State() != CaptchaSolved {
		t.Errorf("expected state %s, got %s", CaptchaSolved, gate.State())
	}
}

func TestGateTimesOutOnPersistentSignal(t *testing.T) {
	gate := testGate(30 * time.Millisecond)

	err := gate.Pass(context.Background(), func() (bool, error) { return true, nil })
	if !errors.Is(err, ErrCaptchaTimeout) {
		t.Fatalf("expected ErrCaptchaTimeout, got %v", err)
	}
	if gate.State() != CaptchaTimedOut {
		t.Errorf("expected state %s, got %s", CaptchaTimedOut, gate.State())
	}
	if !IsFatal(err) {
		t.Errorf("captcha timeout must be fatal")
	}
}

func TestGateIgnoresProbeErrorsWhileWaiting(t *testing.T) {
	gate := testGate(time.Second)

	calls := 0
	probe := func() (bool, error) {
		calls++
		switch calls {
		case 1:
			return true, nil
		case 2:
			return false, errors.New("page busy")
		default:
			return false, nil
		}
	}

	if err := gate.Pass(context.Background(), probe); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.State() != CaptchaSolved {
		t.Errorf("expected state %s, got %s", CaptchaSolved, gate.State())
	}
}

func TestGateInitialProbeErrorIsReturned(t *testing.T) {
	gate := testGate(time.Second)

	probeErr := errors.New("page gone")
	err := gate.Pass(context.Background(), func() (bool, error) { return false, probeErr })
	if !errors.Is(err, probeErr) {
		t.Fatalf("expected probe error, got %v", err)
	}
	if IsFatal(err) {
		t.Errorf("probe failure must stay page-scoped")
	}
}

func TestGateReset(t *testing.T) {
	gate := testGate(20 * time.Millisecond)

	_ = gate.Pass(context.Background(), func() (bool, error) { return true, nil })
	if gate.State() != CaptchaTimedOut {
		t.Fatalf("expected timed out state before reset")
	}

	gate.Reset()
	if gate.State() != CaptchaNone {
		t.Errorf("reset should return the gate to %s", CaptchaNone)
	}
}

func TestGateCancelledContext(t *testing.T) {
	gate := testGate(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Pass(ctx, func() (bool, error) { return true, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
