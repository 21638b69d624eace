package normalize

import (
	"strconv"
	"strings"
	"time"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/dedup"
	"yad2-rental-scraper/internal/scraper"
	"yad2-rental-scraper/internal/storage"
)

// addressSeparator joins address parts. Parts that are absent upstream are
// skipped, never leaving leading, trailing or doubled separators.
const addressSeparator = ", "

// Normalizer converts raw feed items into canonical listings, rejecting
// items that fail validation. Rejections are counted by the caller and
// reported in aggregate only.
type Normalizer struct {
	source  string
	itemURL string
}

func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{
		source:  cfg.Source.Name,
		itemURL: strings.TrimRight(cfg.Source.ItemURL, "/"),
	}
}

// Normalize returns the canonical listing for a raw item, or ok=false when
// the item is invalid: empty derived address, price <= 0 or rooms <= 0.
func (n *Normalizer) Normalize(item *scraper.RawFeedItem) (*storage.Listing, bool) {
	address := buildAddress(item.Address)
	rooms := float64(item.AdditionalDetails.RoomsCount)

	if address == "" || item.Price <= 0 || rooms <= 0 || item.Token == "" {
		return nil, false
	}

	listing := &storage.Listing{
		ID:          dedup.ListingID(n.source, item.Token),
		Source:      n.source,
		Token:       item.Token,
		Address:     address,
		Price:       item.Price,
		Rooms:       rooms,
		Description: buildDescription(item),
		ImageURL:    item.MetaData.CoverImage,
		SourceURL:   n.itemURL + "/" + item.Token,
		ScrapedAt:   time.Now().UTC(),
	}

	if item.Address.Neighborhood != nil {
		listing.Neighborhood = strings.TrimSpace(item.Address.Neighborhood.Text)
	}
	if item.Address.House != nil && item.Address.House.Floor != nil {
		floor := *item.Address.House.Floor
		listing.Floor = &floor
	}
	if sqm := item.AdditionalDetails.SquareMeter; sqm > 0 {
		size := sqm
		listing.SquareMeters = &size
	}
	if c := item.Address.Coords; c != nil && (c.Lat != 0 || c.Lon != 0) {
		lat, lng := c.Lat, c.Lon
		listing.Lat = &lat
		listing.Lng = &lng
	}

	return listing, true
}

// buildAddress concatenates street, house number, neighborhood and city in
// that order, including only the parts the item carries.
func buildAddress(addr scraper.Address) string {
	var parts []string

	if addr.Street != nil {
		if street := strings.TrimSpace(addr.Street.Text); street != "" {
			parts = append(parts, street)
		}
	}
	if addr.House != nil && addr.House.Number > 0 {
		parts = append(parts, strconv.Itoa(addr.House.Number))
	}
	if addr.Neighborhood != nil {
		if hood := strings.TrimSpace(addr.Neighborhood.Text); hood != "" {
			parts = append(parts, hood)
		}
	}
	if addr.City != nil {
		if city := strings.TrimSpace(addr.City.Text); city != "" {
			parts = append(parts, city)
		}
	}

	return strings.Join(parts, addressSeparator)
}

// buildDescription joins the property-type label with the tag names,
// omitting either side when empty.
func buildDescription(item *scraper.RawFeedItem) string {
	var parts []string

	if item.AdditionalDetails.Property != nil {
		if label := strings.TrimSpace(item.AdditionalDetails.Property.Text); label != "" {
			parts = append(parts, label)
		}
	}

	var tags []string
	for _, tag := range item.Tags {
		if name := strings.TrimSpace(tag.Name); name != "" {
			tags = append(tags, name)
		}
	}
	if len(tags) > 0 {
		parts = append(parts, strings.Join(tags, ", "))
	}

	return strings.Join(parts, ", ")
}
