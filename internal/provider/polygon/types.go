package polygon

// barRaw is one aggregate bar; only the fields used for daily closes are decoded.
type barRaw struct {
	Timestamp int64   `json:"t"` // Unix timestamp in milliseconds
	Close     float64 `json:"c"`
}

// aggregatesResponse is the Polygon aggregates response with next_url paging.
type aggregatesResponse struct {
	Ticker       string   `json:"ticker"`
	QueryCount   int      `json:"queryCount"`
	ResultsCount int      `json:"resultsCount"`
	Adjusted     bool     `json:"adjusted"`
	Results      []barRaw `json:"results"`
	Status       string   `json:"status"`
	RequestID    string   `json:"request_id"`
	NextURL      string   `json:"next_url,omitempty"`
	Error        string   `json:"error,omitempty"`
}
