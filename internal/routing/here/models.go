package here

// hereRoutesResponse represents the response shape shared by the HERE
// Routing v8 and Public Transit v8 /routes endpoints.
type hereRoutesResponse struct {
	Routes []hereRoute `json:"routes"`
}

// hereRoute represents a single route or itinerary. Directions routes
// carry a top-level summary; transit itineraries carry sections.
type hereRoute struct {
	ID       string        `json:"id,omitempty"`
	Summary  *hereSummary  `json:"summary,omitempty"`
	Sections []hereSection `json:"sections,omitempty"`
}

// hereSection is one leg of a transit itinerary.
type hereSection struct {
	ID            string         `json:"id,omitempty"`
	Type          string         `json:"type"`
	TravelSummary *hereSummary   `json:"travelSummary,omitempty"`
	Transport     *hereTransport `json:"transport,omitempty"`
}

// hereSummary holds duration and length totals for a section.
type hereSummary struct {
	Duration int `json:"duration"` // Duration in seconds
	Length   int `json:"length"`   // Length in meters
}

// hereTransport describes the vehicle serving a transit section.
type hereTransport struct {
	Mode string `json:"mode,omitempty"`
	Name string `json:"name,omitempty"`
	Line string `json:"line,omitempty"`
}

// hereErrorResponse represents a HERE API error payload.
type hereErrorResponse struct {
	Title  string `json:"title,omitempty"`
	Status int    `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	Cause  string `json:"cause,omitempty"`
	Action string `json:"action,omitempty"`
}
