package notion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nestscout/nestscout/internal/prediction"
	"github.com/nestscout/nestscout/internal/property"
)

// Notion caps rich text blocks at 2000 characters.
const maxBlockLength = 2000

// PageInput is everything needed to build one property page.
type PageInput struct {
	Property *property.Property

	// Predictions is optional. When set, the page gets a travel times
	// section.
	Predictions *prediction.PropertyPredictionSet

	// PointNames maps interest point IDs to display names for the
	// travel times section. Unmapped IDs fall back to the raw ID.
	PointNames map[string]string
}

var propertyTypeEmoji = map[property.PropertyType]string{
	property.TypeHouse:      "🏠",
	property.TypeApartment:  "🏢",
	property.TypeDuplex:     "🏘️",
	property.TypeTownhouse:  "🏘️",
	property.TypeBungalow:   "🏡",
	property.TypeCottage:    "🏚️",
	property.TypePenthouse:  "🏙️",
	property.TypeStudio:     "🏠",
	property.TypeLand:       "🌍",
	property.TypeCommercial: "🏢",
}

// Wire shapes for the Notion pages API.

type pageRequest struct {
	Parent     pageParent              `json:"parent"`
	Properties map[string]pageProperty `json:"properties"`
	Children   []pageBlock             `json:"children,omitempty"`
}

type pageParent struct {
	DatabaseID string `json:"database_id"`
}

type pageProperty struct {
	Title    []richText  `json:"title,omitempty"`
	RichText []richText  `json:"rich_text,omitempty"`
	Number   *float64    `json:"number,omitempty"`
	Select   *selectName `json:"select,omitempty"`
	Date     *dateStart  `json:"date,omitempty"`
}

type selectName struct {
	Name string `json:"name"`
}

type dateStart struct {
	Start string `json:"start"`
}

type richText struct {
	Type string       `json:"type,omitempty"`
	Text richTextBody `json:"text"`
}

type richTextBody struct {
	Content string `json:"content"`
}

type pageBlock struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Paragraph *blockBody `json:"paragraph,omitempty"`
	Heading2  *blockBody `json:"heading_2,omitempty"`
}

type blockBody struct {
	RichText []richText `json:"rich_text"`
}

func buildPageRequest(databaseID string, in PageInput) pageRequest {
	prop := in.Property
	address := formatPropertyAddress(prop)
	typeDisplay := titleCase(string(prop.PropertyType))

	props := map[string]pageProperty{
		"Name": {Title: []richText{text(
			propertyTypeEmoji[prop.PropertyType] + " " + typeDisplay + " - " + address,
		)}},
		"Address":       {RichText: []richText{text(address)}},
		"Property Type": {Select: &selectName{Name: typeDisplay}},
		"City":          {RichText: []richText{text(prop.Address.City)}},
		"Bedrooms":      {Number: number(float64(prop.Bedrooms))},
		"Bathrooms":     {Number: number(float64(prop.Bathrooms))},
		"Area (sqm)":    {Number: number(prop.AreaSqm)},
		"Price":         {RichText: []richText{text(formatListingsInfo(prop.Listings))}},
		"Status":        {Select: &selectName{Name: statusName(prop)}},
		"Date Added":    {Date: &dateStart{Start: prop.CreatedAt.Format(time.RFC3339)}},
	}
	if prop.Address.County != "" {
		props["County"] = pageProperty{RichText: []richText{text(prop.Address.County)}}
	}
	if prop.EnergyRating != "" {
		props["Energy Rating"] = pageProperty{RichText: []richText{text(prop.EnergyRating)}}
	}

	return pageRequest{
		Parent:     pageParent{DatabaseID: databaseID},
		Properties: props,
		Children:   buildPageBlocks(in),
	}
}

func buildPageBlocks(in PageInput) []pageBlock {
	var blocks []pageBlock

	if primary := in.Property.PrimaryListing(); primary != nil && primary.Description != "" {
		blocks = append(blocks, paragraph(truncate(primary.Description, maxBlockLength)))
	}

	if len(in.Property.Listings) > 0 {
		blocks = append(blocks, heading("Listings"))
		for _, l := range in.Property.Listings {
			line := fmt.Sprintf("• %s: %s - %s",
				titleCase(string(l.Website)), formatPrice(l.Price, l.Currency), l.Status)
			if l.ListingURL != "" {
				line += " - " + l.ListingURL
			}
			blocks = append(blocks, paragraph(line))
		}
	}

	if in.Predictions != nil && len(in.Predictions.Predictions) > 0 {
		blocks = append(blocks, heading("Travel Times (Friday "+in.Predictions.PredictionDate+", 09:00)"))
		for _, p := range in.Predictions.Predictions {
			blocks = append(blocks, paragraph(formatTravelLine(p, in.PointNames)))
		}
	}

	return blocks
}

// formatTravelLine renders one prediction as a bullet, for example
// "• Work (publicTransport): 20min, 5.0 km, arrives 09:20 (5min walking, 0.400 km)".
func formatTravelLine(p prediction.TravelPrediction, names map[string]string) string {
	name := p.InterestPointID
	if n, ok := names[p.InterestPointID]; ok && n != "" {
		name = n
	}

	line := fmt.Sprintf("• %s (%s): %s, %s, arrives %s",
		name, p.Mode,
		prediction.FormatDuration(p.DurationMinutes),
		prediction.FormatDistance(p.DistanceKm),
		p.ArrivalTime)

	if p.TotalWalkingMinutes != nil && p.TotalWalkingDistanceKm != nil {
		line += fmt.Sprintf(" (%s walking, %s)",
			prediction.FormatDuration(*p.TotalWalkingMinutes),
			prediction.FormatDistance(*p.TotalWalkingDistanceKm))
	}
	return line
}

func formatPropertyAddress(prop *property.Property) string {
	parts := []string{prop.Address.Street, prop.Address.City}
	if prop.Address.County != "" {
		parts = append(parts, prop.Address.County)
	}
	if prop.Address.PostalCode != "" {
		parts = append(parts, prop.Address.PostalCode)
	}
	return strings.Join(parts, ", ")
}

// formatPrice renders "EUR 450,000" with thousands grouping and no
// decimals.
func formatPrice(price float64, currency string) string {
	if currency == "" {
		currency = "EUR"
	}
	return currency + " " + groupThousands(int64(price+0.5))
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func formatListingsInfo(listings []property.WebsiteListing) string {
	if len(listings) == 0 {
		return "No listings"
	}

	var parts []string
	for _, l := range listings {
		if l.Status != property.StatusActive {
			continue
		}
		parts = append(parts, string(l.Website)+": "+formatPrice(l.Price, l.Currency))
	}
	if len(parts) == 0 {
		return "No active listings"
	}
	return strings.Join(parts, " | ")
}

func statusName(prop *property.Property) string {
	if len(prop.ActiveListings()) > 0 {
		return "Active"
	}
	return "Inactive"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func text(content string) richText {
	return richText{Text: richTextBody{Content: content}}
}

func number(v float64) *float64 {
	return &v
}

func paragraph(content string) pageBlock {
	return pageBlock{
		Object:    "block",
		Type:      "paragraph",
		Paragraph: &blockBody{RichText: []richText{{Type: "text", Text: richTextBody{Content: content}}}},
	}
}

func heading(content string) pageBlock {
	return pageBlock{
		Object:   "block",
		Type:     "heading_2",
		Heading2: &blockBody{RichText: []richText{{Type: "text", Text: richTextBody{Content: content}}}},
	}
}
