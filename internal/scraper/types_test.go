package scraper

import (
	"encoding/json"
	"testing"
)

func TestRoomsCountDecoding(t *testing.T) {
	tests := []struct {
		name string
		json string
		want float64
	}{
		{"bare integer", `{"roomsCount": 3}`, 3},
		{"bare float", `{"roomsCount": 3.5}`, 3.5},
		{"wrapped text", `{"roomsCount": {"text": "3.5"}}`, 3.5},
		{"wrapped junk", `{"roomsCount": {"text": "studio"}}`, 0},
		{"null", `{"roomsCount": null}`, 0},
		{"absent", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var details AdditionalDetails
			if err := json.Unmarshal([]byte(tt.json), &details); err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if float64(details.RoomsCount) != tt.want {
				t.Errorf("got %v, want %v", details.RoomsCount, tt.want)
			}
		})
	}
}

func TestFeedPayloadBucketIsNilSafe(t *testing.T) {
	var payload *FeedPayload
	if payload.Bucket("private") != nil {
		t.Errorf("nil payload should yield nil bucket")
	}

	payload = &FeedPayload{}
	if payload.Bucket("private") != nil {
		t.Errorf("empty payload should yield nil bucket")
	}
}
