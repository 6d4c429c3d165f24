package models

// PredictionComputeRequest asks for a single origin-to-destination
// travel prediction.
type PredictionComputeRequest struct {
	Origin      Point  `json:"origin"`
	Destination Point  `json:"destination"`
	Mode        string `json:"mode,omitempty"`
}

// BatchPropertyInput identifies one property in a batch compute request.
type BatchPropertyInput struct {
	ID       string `json:"id"`
	Location Point  `json:"location"`
}

// PredictionBatchRequest asks for predictions from several properties to
// every active interest point.
type PredictionBatchRequest struct {
	Properties []BatchPropertyInput `json:"properties"`
}

// IngestRequest asks the server to ingest a listing URL.
type IngestRequest struct {
	URL string `json:"url"`
}
