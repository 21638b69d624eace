package scraper

import (
	"fmt"
	"testing"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
)

func testExtractor() *Extractor {
	return NewExtractor(&config.Config{
		Feed: config.FeedConfig{
			HydrationElementID: "__NEXT_DATA__",
			QueryKeyMarker:     "realestate-feed",
		},
	}, observability.NewNop())
}

func pageMarkup(hydrationJSON string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>Listings</title></head>
<body>
<div id="feed">rendered content</div>
<script id="__NEXT_DATA__" type="application/json">%s</script>
</body>
</html>`, hydrationJSON)
}

const feedJSON = `{
	"props": {
		"pageProps": {
			"dehydratedState": {
				"queries": [
					{
						"queryKey": ["user-profile", {}],
						"state": {"data": {"name": "someone"}}
					},
					{
						"queryKey": ["realestate-feed", {"page": 1}],
						"state": {
							"data": {
								"private": [
									{"token": "tok1", "price": 4200,
									 "address": {"city": {"text": "Tel Aviv"}},
									 "additionalDetails": {"roomsCount": 2}}
								],
								"agency": [
									{"token": "tok2", "price": 6100,
									 "address": {"city": {"text": "Tel Aviv"}},
									 "additionalDetails": {"roomsCount": {"text": "3"}}}
								],
								"pagination": {"total": 740, "totalPages": 37}
							}
						}
					}
				]
			}
		}
	}
}`

func TestExtractFindsFeedQuery(t *testing.T) {
	payload := testExtractor().Extract(pageMarkup(feedJSON))
	if payload == nil {
		t.Fatalf("payload not extracted")
	}

	private := payload.Bucket("private")
	if len(private) != 1 || private[0].Token != "tok1" {
		t.Errorf("unexpected private bucket: %+v", private)
	}

	agency := payload.Bucket("agency")
	if len(agency) != 1 || float64(agency[0].AdditionalDetails.RoomsCount) != 3 {
		t.Errorf("unexpected agency bucket: %+v", agency)
	}

	if payload.Pagination == nil {
		t.Fatalf("pagination summary missing")
	}
	if payload.Pagination.Total != 740 || payload.Pagination.TotalPages != 37 {
		t.Errorf("unexpected pagination: %+v", payload.Pagination)
	}

	if payload.Bucket("platinum") != nil {
		t.Errorf("absent bucket should be nil")
	}
}

func TestExtractMissingHydrationElement(t *testing.T) {
	markup := `<html><body><div>challenge page, no data</div></body></html>`
	if payload := testExtractor().Extract(markup); payload != nil {
		t.Errorf("expected nil payload, got %+v", payload)
	}
}

func TestExtractMalformedJSON(t *testing.T) {
	if payload := testExtractor().Extract(pageMarkup(`{"props": {broken`)); payload != nil {
		t.Errorf("expected nil payload for malformed JSON")
	}
}

func TestExtractNoMatchingQuery(t *testing.T) {
	markup := pageMarkup(`{
		"props": {"pageProps": {"dehydratedState": {"queries": [
			{"queryKey": ["something-else"], "state": {"data": {}}}
		]}}}
	}`)
	if payload := testExtractor().Extract(markup); payload != nil {
		t.Errorf("expected nil payload when no query matches the marker")
	}
}

func TestExtractSkipsUndecodableBuckets(t *testing.T) {
	markup := pageMarkup(`{
		"props": {"pageProps": {"dehydratedState": {"queries": [
			{"queryKey": ["realestate-feed"], "state": {"data": {
				"private": [{"token": "tok9", "price": 3000,
					"address": {"city": {"text": "Haifa"}},
					"additionalDetails": {"roomsCount": 1}}],
				"banner": {"not": "a list"}
			}}}
		]}}}
	}`)

	payload := testExtractor().Extract(markup)
	if payload == nil {
		t.Fatalf("payload not extracted")
	}
	if len(payload.Bucket("private")) != 1 {
		t.Errorf("decodable bucket lost")
	}
	if payload.Bucket("banner") != nil {
		t.Errorf("non-list bucket should be skipped")
	}
}
