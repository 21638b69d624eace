package scraper

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
)

// Extractor locates the embedded feed payload inside a page's hydration
// data. It works on markup text, so it serves both the browser session
// (rendered document HTML) and the direct-HTTP path (raw response body).
type Extractor struct {
	elementID string
	marker    string
	logger    *observability.Logger
}

func NewExtractor(cfg *config.Config, logger *observability.Logger) *Extractor {
	return &Extractor{
		elementID: cfg.Feed.HydrationElementID,
		marker:    cfg.Feed.QueryKeyMarker,
		logger:    logger,
	}
}

// hydrationData mirrors the slice of the framework state we care about: the
// dehydrated query cache shipped for client-side resume.
type hydrationData struct {
	Props struct {
		PageProps struct {
			DehydratedState struct {
				Queries []dehydratedQuery `json:"queries"`
			} `json:"dehydratedState"`
		} `json:"pageProps"`
	} `json:"props"`
}

type dehydratedQuery struct {
	QueryKey json.RawMessage `json:"queryKey"`
	State    struct {
		Data json.RawMessage `json:"data"`
	} `json:"state"`
}

// Extract returns the listing feed embedded in the markup, or nil when the
// hydration element, its JSON, or a matching query is absent. Malformed
// input is a normal no-payload outcome, never an error: a challenge page or
// a markup change manifests exactly this way.
func (e *Extractor) Extract(markup string) *FeedPayload {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.logger.Debug("hydration markup unparsable", "error", err.Error())
		return nil
	}

	raw := doc.Find(fmt.Sprintf("script#%s", e.elementID)).First().Text()
	if strings.TrimSpace(raw) == "" {
		e.logger.Debug("hydration element missing", "element_id", e.elementID)
		return nil
	}

	var data hydrationData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		e.logger.Debug("hydration JSON malformed", "error", err.Error())
		return nil
	}

	for _, q := range data.Props.PageProps.DehydratedState.Queries {
		if !strings.Contains(string(q.QueryKey), e.marker) {
			continue
		}
		if payload := e.decodeFeed(q.State.Data); payload != nil {
			return payload
		}
	}

	e.logger.Debug("no query matched feed marker", "marker", e.marker)
	return nil
}

// decodeFeed turns the matched query's data object into bucket slices plus
// the optional pagination summary. Unknown keys that do not decode as item
// lists are skipped; the bucket set is not contractually stable upstream.
func (e *Extractor) decodeFeed(data json.RawMessage) *FeedPayload {
	var groups map[string]json.RawMessage
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil
	}

	payload := &FeedPayload{Buckets: make(map[string][]RawFeedItem)}

	for name, raw := range groups {
		if name == "pagination" {
			var summary PageSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				payload.Pagination = &summary
			}
			continue
		}

		var items []RawFeedItem
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}
		payload.Buckets[name] = items
	}

	if len(payload.Buckets) == 0 && payload.Pagination == nil {
		return nil
	}
	return payload
}
