package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPayload marks a page whose hydration payload was absent or
	// unparsable. Page-scoped and recoverable.
	ErrNoPayload = errors.New("hydration payload not found")

	// ErrCaptchaTimeout means a challenge stayed unresolved past the wait
	// window. The whole run aborts on it.
	ErrCaptchaTimeout = errors.New("anti-bot challenge unresolved within timeout")

	// ErrBrowserLaunch means the automation environment is unavailable.
	// The whole run aborts on it.
	ErrBrowserLaunch = errors.New("browser launch failed")
)

// PageError is a recoverable, page-scoped fetch failure. The orchestrator
// logs it and continues with the next page.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether an error must abort the whole run rather than
// skip a page.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCaptchaTimeout) || errors.Is(err, ErrBrowserLaunch)
}
