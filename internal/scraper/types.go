package scraper

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RawFeedItem is one listing as shipped inside a page's hydration payload.
// The upstream shape is loose and drifts between deployments: every field
// observed missing in the wild is optional here and checked before use.
type RawFeedItem struct {
	Token             string            `json:"token"`
	Price             int               `json:"price"`
	Address           Address           `json:"address"`
	AdditionalDetails AdditionalDetails `json:"additionalDetails"`
	MetaData          MetaData          `json:"metaData"`
	Tags              []Tag             `json:"tags"`
}

type Address struct {
	Street       *TextField  `json:"street"`
	House        *HouseField `json:"house"`
	Neighborhood *TextField  `json:"neighborhood"`
	City         *TextField  `json:"city"`
	Coords       *Coords     `json:"coords"`
}

type TextField struct {
	Text string `json:"text"`
}

type HouseField struct {
	Number int  `json:"number"`
	Floor  *int `json:"floor"`
}

type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type AdditionalDetails struct {
	RoomsCount  RoomsCount `json:"roomsCount"`
	SquareMeter int        `json:"squareMeter"`
	Property    *TextField `json:"property"`
}

type MetaData struct {
	CoverImage string `json:"coverImage"`
}

type Tag struct {
	Name string `json:"name"`
}

// RoomsCount tolerates the two shapes the feed has shipped: a bare number
// and a wrapped {"text": "3.5"}. Anything unparsable decodes to zero, which
// validation later rejects.
type RoomsCount float64

func (r *RoomsCount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*r = RoomsCount(n)
		return nil
	}

	var wrapped TextField
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if n, err := strconv.ParseFloat(wrapped.Text, 64); err == nil {
			*r = RoomsCount(n)
			return nil
		}
	}

	*r = 0
	return nil
}

// PageSummary is the optional pagination block of a feed page.
type PageSummary struct {
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// FeedPayload is the decoded feed for one page: category buckets plus the
// optional pagination summary. Bucket names are whatever the payload carried;
// callers iterate their own configured bucket order.
type FeedPayload struct {
	Buckets    map[string][]RawFeedItem
	Pagination *PageSummary
}

// Bucket returns the items of a named bucket, or nil when the bucket is
// absent or was renamed upstream. Missing buckets are a normal outcome.
func (p *FeedPayload) Bucket(name string) []RawFeedItem {
	if p == nil || p.Buckets == nil {
		return nil
	}
	return p.Buckets[name]
}
