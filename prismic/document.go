package prismic

import "encoding/json"

// API is the repository root document listing the available refs.
type API struct {
	Refs []Ref `json:"refs"`
}

type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Document is a raw content record. Data holds the custom type fields as sent by the API.
type Document struct {
	ID                   string          `json:"id"`
	UID                  *string         `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href,omitempty"`
	Tags                 []string        `json:"tags"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Lang                 string          `json:"lang,omitempty"`
	Data                 json.RawMessage `json:"data"`
}
