package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/scraper"
)

// PreNavigationHook runs against the session page before the first
// navigation. The default applies anti-fingerprinting patches; target-site
// detection evolves, so the hook is pluggable rather than a guaranteed
// behavior.
type PreNavigationHook func(page *rod.Page) error

// preNavScript trims the most common automation signals on top of what
// go-rod/stealth already patches.
const preNavScript = `
(function() {
    'use strict';

    Object.defineProperty(navigator, 'webdriver', {
        get: () => undefined,
        configurable: true
    });
    try {
        delete Object.getPrototypeOf(navigator).webdriver;
    } catch (e) {}

    Object.defineProperty(navigator, 'languages', {
        get: () => Object.freeze(['he-IL', 'he', 'en-US', 'en']),
        configurable: true
    });

    if (!window.chrome) {
        Object.defineProperty(window, 'chrome', {
            value: { runtime: {} },
            writable: true,
            enumerable: true
        });
    }
})();
`

// BrowserSession fetches listing pages through one long-lived automated
// browser. It can observe anti-bot challenges and hold the pipeline at the
// captcha gate until an operator solves them; fetching a page may therefore
// block the caller for minutes.
type BrowserSession struct {
	cfg       *config.Config
	browser   *rod.Browser
	page      *rod.Page
	gate      *CaptchaGate
	extractor *scraper.Extractor
	hook      PreNavigationHook
	logger    *observability.Logger
}

// NewBrowserSession launches the browser. A launch failure is fatal for the
// run: there is no point paging without an automation environment.
func NewBrowserSession(cfg *config.Config, extractor *scraper.Extractor, logger *observability.Logger) (*BrowserSession, error) {
	l := launcher.New().
		Headless(cfg.Rod.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-infobars").
		Set("window-size", "1920,1080").
		Set("lang", "he-IL,he")

	if cfg.Rod.ChromePath != "" {
		l = l.Bin(cfg.Rod.ChromePath)
	}
	if cfg.Rod.UserDataDir != "" {
		// Persisted profile keeps cookies across runs, which lowers the
		// challenge rate on the target site.
		l = l.UserDataDir(cfg.Rod.UserDataDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserLaunch, err)
	}

	logger.Info("browser session started",
		"headless", cfg.Rod.Headless,
		"profile", cfg.Rod.UserDataDir,
	)

	return &BrowserSession{
		cfg:       cfg,
		browser:   browser,
		gate:      NewCaptchaGate(cfg, logger),
		extractor: extractor,
		hook:      defaultPreNavigationHook,
		logger:    logger,
	}, nil
}

// SetPreNavigationHook replaces the default anti-fingerprinting hook.
func (s *BrowserSession) SetPreNavigationHook(hook PreNavigationHook) {
	s.hook = hook
}

func defaultPreNavigationHook(page *rod.Page) error {
	_, err := page.EvalOnNewDocument(preNavScript)
	return err
}

func (s *BrowserSession) Name() string { return "browser-session" }

// Gate exposes the captcha gate, mainly for run summaries.
func (s *BrowserSession) Gate() *CaptchaGate {
	return s.gate
}

func (s *BrowserSession) FetchPage(ctx context.Context, pageNum int) (*scraper.FeedPayload, error) {
	targetURL := PageURL(s.cfg.Source.ListingURL, pageNum)

	page, err := s.ensurePage()
	if err != nil {
		return nil, &PageError{Page: pageNum, Err: fmt.Errorf("create page: %w", err)}
	}

	// A session already past one challenge may hit another on a later page.
	s.gate.Reset()

	nav := page.Context(ctx).Timeout(s.cfg.GetRodPageTimeout())

	if err := nav.Navigate(targetURL); err != nil {
		return nil, &PageError{Page: pageNum, Err: fmt.Errorf("navigate: %w", err)}
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, &PageError{Page: pageNum, Err: fmt.Errorf("wait load: %w", err)}
	}

	if err := s.gate.Pass(ctx, s.challengeProbe(nav)); err != nil {
		if errors.Is(err, ErrCaptchaTimeout) {
			return nil, err
		}
		return nil, &PageError{Page: pageNum, Err: err}
	}

	if s.gate.State() == CaptchaSolved {
		// The post-challenge redirect may have landed somewhere else.
		if info, err := nav.Info(); err == nil && info.URL != targetURL {
			if err := nav.Navigate(targetURL); err != nil {
				return nil, &PageError{Page: pageNum, Err: fmt.Errorf("re-navigate: %w", err)}
			}
			if err := nav.WaitLoad(); err != nil {
				return nil, &PageError{Page: pageNum, Err: fmt.Errorf("re-navigate wait: %w", err)}
			}
		}
	}

	s.waitForHydration(ctx, nav)

	markup, err := nav.HTML()
	if err != nil {
		return nil, &PageError{Page: pageNum, Err: fmt.Errorf("read document: %w", err)}
	}

	payload := s.extractor.Extract(markup)
	if payload == nil {
		return nil, &PageError{Page: pageNum, Err: ErrNoPayload}
	}
	return payload, nil
}

// ensurePage lazily creates the single long-lived stealth page.
func (s *BrowserSession) ensurePage() (*rod.Page, error) {
	if s.page != nil {
		return s.page, nil
	}

	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, err
	}

	if s.hook != nil {
		if err := s.hook(page); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("pre-navigation hook: %w", err)
		}
	}

	s.page = page
	return page, nil
}

// waitForHydration waits, bounded, for the hydration marker to appear in
// the live document. Best effort: extraction decides whether the payload is
// really there.
func (s *BrowserSession) waitForHydration(ctx context.Context, page *rod.Page) {
	selector := fmt.Sprintf("script#%s", s.cfg.Feed.HydrationElementID)
	deadline := time.Now().Add(s.cfg.GetHydrationWait())

	for time.Now().Before(deadline) {
		has, _, err := page.Has(selector)
		if err == nil && has {
			return
		}

		select {
		case <-time.After(s.cfg.GetHydrationPoll()):
		case <-ctx.Done():
			return
		}
	}

	s.logger.Debug("hydration marker did not appear within wait window",
		"selector", selector,
	)
}

// challengeProbe adapts the configured challenge signals (selectors and
// phrases) into a gate probe against the live page.
func (s *BrowserSession) challengeProbe(page *rod.Page) ChallengeProbe {
	return func() (bool, error) {
		for _, sel := range s.cfg.Captcha.Selectors {
			has, _, err := page.Has(sel)
			if err != nil {
				return false, err
			}
			if has {
				return true, nil
			}
		}

		if len(s.cfg.Captcha.Phrases) == 0 {
			return false, nil
		}

		result, err := page.Eval(`() => document.body ? document.body.innerText : ""`)
		if err != nil {
			return false, err
		}

		text := strings.ToLower(result.Value.Str())
		for _, phrase := range s.cfg.Captcha.Phrases {
			if strings.Contains(text, strings.ToLower(phrase)) {
				return true, nil
			}
		}
		return false, nil
	}
}

// Close releases the browser on every exit path of a run.
func (s *BrowserSession) Close() error {
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.logger.Debug("failed to close page", "error", err.Error())
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
		s.logger.Info("browser session closed")
	}
	return nil
}
