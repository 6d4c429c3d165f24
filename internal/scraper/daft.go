package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nestscout/nestscout/internal/property"
	"github.com/nestscout/nestscout/internal/provider/resilience"
)

const (
	// daftProviderName identifies the daft.ie scraper for health tracking.
	daftProviderName = "daft-scraper"

	// daftDefaultTimeout is the default page-fetch timeout.
	daftDefaultTimeout = 30 * time.Second

	// daftUserAgent is a desktop browser user agent. Listing sites
	// serve a reduced page, or none at all, to unknown clients.
	daftUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// URL shapes for daft.ie listing pages.
var (
	daftPathPattern      = regexp.MustCompile(`/(?:property-|commercial-)?for-(?:sale|rent)/`)
	daftListingIDPattern = regexp.MustCompile(`/(?:property-|commercial-)?for-(?:sale|rent)/[^/]+/(\d+)(?:\?|$)`)
	daftTrailingID       = regexp.MustCompile(`/(\d+)(?:\?|$)`)
)

// Fallback patterns for pages without an embedded data payload.
var (
	nextDataPattern   = regexp.MustCompile(`(?s)<script\s+id="__NEXT_DATA__"[^>]*>(.*?)</script>`)
	titleTagPattern   = regexp.MustCompile(`(?s)<title[^>]*>(.*?)</title>`)
	euroPricePattern  = regexp.MustCompile(`€\s*([\d,]+)`)
	bedroomsPattern   = regexp.MustCompile(`(\d+)\s*Bed`)
	bathroomsPattern  = regexp.MustCompile(`(\d+)\s*Bath`)
	floorAreaPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m²`)
	berPattern        = regexp.MustCompile(`BER\s*:?\s*([A-G]\d?)`)
	eircodePattern    = regexp.MustCompile(`^[A-Z]\d{2}\s?[A-Z0-9]{4}$`)
	leadingIntPattern = regexp.MustCompile(`\d+`)
)

// daftTypeNames maps listing-page type labels to property types.
// Order matters where one label contains another.
var daftTypeNames = []struct {
	label string
	ptype property.PropertyType
}{
	{"end of terrace", property.TypeHouse},
	{"semi-detached", property.TypeHouse},
	{"detached", property.TypeHouse},
	{"terrace", property.TypeHouse},
	{"apartment", property.TypeApartment},
	{"duplex", property.TypeDuplex},
	{"townhouse", property.TypeTownhouse},
	{"bungalow", property.TypeBungalow},
	{"cottage", property.TypeCottage},
	{"penthouse", property.TypePenthouse},
	{"studio", property.TypeStudio},
	{"site", property.TypeLand},
	{"house", property.TypeHouse},
}

// DaftConfig holds configuration for the daft.ie scraper.
type DaftConfig struct {
	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the page-fetch timeout (optional, defaults to 30s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for scraping operations.
	Logger zerolog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DaftScraper scrapes property listings from daft.ie.
type DaftScraper struct {
	httpClient HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDaftScraper creates a daft.ie scraper.
func NewDaftScraper(cfg DaftConfig) *DaftScraper {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = daftDefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(daftProviderName)
		clientCfg.Timeout = timeout
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &DaftScraper{
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Website implements Scraper.
func (s *DaftScraper) Website() property.WebsiteSource {
	return property.SourceDaft
}

// CanHandle reports whether the URL is a daft.ie listing page.
func (s *DaftScraper) CanHandle(url string) bool {
	if !strings.Contains(url, "daft.ie") {
		return false
	}
	return daftPathPattern.MatchString(url)
}

// ExtractListingID pulls the numeric listing ID from a daft.ie URL.
func (s *DaftScraper) ExtractListingID(url string) (string, error) {
	if m := daftListingIDPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	// Some shared links drop the path prefix but keep the trailing ID.
	if m := daftTrailingID.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %s", ErrListingIDNotFound, url)
}

// Scrape fetches the listing page and parses it into a property record.
func (s *DaftScraper) Scrape(ctx context.Context, url string) (*property.Property, error) {
	listingID, err := s.ExtractListingID(url)
	if err != nil {
		return nil, err
	}

	body, err := s.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	prop, err := s.parse(body, url, listingID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("url", url).
		Str("listing_id", listingID).
		Str("address", prop.Address.FormattedAddress).
		Msg("scraped daft listing")

	return prop, nil
}

func (s *DaftScraper) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", daftUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching listing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: %s", ErrAccessForbidden, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching listing page: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading listing page: %w", err)
	}
	return body, nil
}

// nextData is the embedded page-state payload on daft.ie listing pages.
type nextData struct {
	Props struct {
		PageProps struct {
			Listing *daftListing `json:"listing"`
		} `json:"pageProps"`
	} `json:"props"`
}

type daftListing struct {
	ID           json.Number    `json:"id"`
	Title        string         `json:"title"`
	Price        string         `json:"price"`
	PropertyType string         `json:"propertyType"`
	NumBedrooms  string         `json:"numBedrooms"`
	NumBathrooms string         `json:"numBathrooms"`
	Description  string         `json:"description"`
	BER          *daftBER       `json:"ber"`
	FloorArea    *daftFloorArea `json:"floorArea"`
	Seller       *daftSeller    `json:"seller"`
	Point        *daftPoint     `json:"point"`
}

type daftBER struct {
	Rating string `json:"rating"`
}

type daftFloorArea struct {
	Unit  string `json:"unit"`
	Value string `json:"value"`
}

type daftSeller struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Branch string `json:"branch"`
}

// daftPoint is GeoJSON-shaped: coordinates are [longitude, latitude].
type daftPoint struct {
	Coordinates []float64 `json:"coordinates"`
}

func (s *DaftScraper) parse(body []byte, url, listingID string) (*property.Property, error) {
	if m := nextDataPattern.FindSubmatch(body); m != nil {
		var data nextData
		if err := json.Unmarshal(m[1], &data); err == nil && data.Props.PageProps.Listing != nil {
			return s.fromListing(data.Props.PageProps.Listing, url, listingID)
		}
		s.logger.Warn().Str("url", url).Msg("embedded listing payload unusable, falling back to page text")
	}
	return s.fromPageText(body, url, listingID)
}

// fromListing maps the embedded JSON listing into a property record.
func (s *DaftScraper) fromListing(l *daftListing, url, listingID string) (*property.Property, error) {
	price, ok := parseEuroPrice(l.Price)
	if !ok {
		return nil, fmt.Errorf("%w: no price in listing payload", ErrListingNotParsed)
	}
	if l.Title == "" {
		return nil, fmt.Errorf("%w: no address in listing payload", ErrListingNotParsed)
	}

	addr := parseDaftAddress(l.Title)
	if l.Point != nil && len(l.Point.Coordinates) == 2 {
		lng, lat := l.Point.Coordinates[0], l.Point.Coordinates[1]
		addr.Latitude = &lat
		addr.Longitude = &lng
	}

	prop := &property.Property{
		Address:      addr,
		PropertyType: parsePropertyType(l.PropertyType),
		Bedrooms:     parseLeadingInt(l.NumBedrooms),
		Bathrooms:    parseLeadingInt(l.NumBathrooms),
	}
	if l.BER != nil {
		prop.EnergyRating = l.BER.Rating
	}
	if l.FloorArea != nil && strings.EqualFold(l.FloorArea.Unit, "METRES_SQUARED") {
		if v, err := strconv.ParseFloat(l.FloorArea.Value, 64); err == nil {
			prop.AreaSqm = v
		}
	}

	listing := s.newListing(url, listingID, price, l.Title, l.Description)
	if l.Seller != nil && l.Seller.Name != "" {
		listing.Agent = &property.AgentInfo{
			Name:   l.Seller.Name,
			Phone:  l.Seller.Phone,
			Agency: l.Seller.Branch,
		}
	}
	prop.Listings = []property.WebsiteListing{listing}

	return prop, nil
}

// fromPageText recovers a listing from the raw page when the embedded
// payload is absent, pattern-matching the visible text.
func (s *DaftScraper) fromPageText(body []byte, url, listingID string) (*property.Property, error) {
	text := string(body)

	title := ""
	if m := titleTagPattern.FindStringSubmatch(text); m != nil {
		title = strings.TrimSpace(m[1])
	}
	if title == "" {
		return nil, fmt.Errorf("%w: no address on page", ErrListingNotParsed)
	}

	price, ok := parseEuroPrice(text)
	if !ok {
		return nil, fmt.Errorf("%w: no price on page", ErrListingNotParsed)
	}

	prop := &property.Property{
		Address:      parseDaftAddress(title),
		PropertyType: parsePropertyType(text),
	}
	if m := bedroomsPattern.FindStringSubmatch(text); m != nil {
		prop.Bedrooms, _ = strconv.Atoi(m[1])
	}
	if m := bathroomsPattern.FindStringSubmatch(text); m != nil {
		prop.Bathrooms, _ = strconv.Atoi(m[1])
	}
	if m := floorAreaPattern.FindStringSubmatch(text); m != nil {
		prop.AreaSqm, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := berPattern.FindStringSubmatch(text); m != nil {
		prop.EnergyRating = m[1]
	}

	prop.Listings = []property.WebsiteListing{s.newListing(url, listingID, price, title, "")}

	return prop, nil
}

func (s *DaftScraper) newListing(url, listingID string, price float64, title, description string) property.WebsiteListing {
	return property.WebsiteListing{
		Website:     property.SourceDaft,
		ListingID:   listingID,
		ListingURL:  url,
		Price:       price,
		Currency:    "EUR",
		Status:      property.StatusActive,
		Title:       title,
		Description: description,
		DateScraped: s.now().UTC(),
	}
}

// parseEuroPrice extracts the first euro amount from text like
// "€450,000" or "AMV: €375,000".
func parseEuroPrice(text string) (float64, bool) {
	m := euroPricePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseLeadingInt reads the first integer from text like "3 Bed".
func parseLeadingInt(text string) int {
	m := leadingIntPattern.FindString(text)
	if m == "" {
		return 0
	}
	v, _ := strconv.Atoi(m)
	return v
}

// parsePropertyType maps a listing-page type label to a property type.
func parsePropertyType(text string) property.PropertyType {
	lower := strings.ToLower(text)
	for _, t := range daftTypeNames {
		if strings.Contains(lower, t.label) {
			return t.ptype
		}
	}
	return property.TypeHouse
}

// parseDaftAddress splits a listing title like
// "168 Rutland Avenue, Crumlin, Dublin 12, D12CT80" into components.
func parseDaftAddress(title string) property.Address {
	parts := strings.Split(title, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	addr := property.Address{
		Country:          "Ireland",
		FormattedAddress: title,
	}

	// A trailing Eircode is a postal code, not a locality.
	if n := len(parts); n > 1 && eircodePattern.MatchString(parts[n-1]) {
		addr.PostalCode = parts[n-1]
		parts = parts[:n-1]
	}

	switch len(parts) {
	case 0:
		return addr
	case 1:
		addr.Street = parts[0]
	case 2:
		addr.Street = parts[0]
		addr.City = parts[1]
	default:
		addr.Street = parts[0]
		addr.City = parts[len(parts)-1]
		addr.County = strings.Join(parts[1:len(parts)-1], ", ")
	}
	return addr
}
