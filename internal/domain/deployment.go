package domain

import "time"

// Website is a generated (or client supplied) site artifact.
type Website struct {
	HTML     string         `json:"html"`
	CSS      string         `json:"css"`
	JS       string         `json:"js"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Site is a publishing target allocated on the hosting provider.
type Site struct {
	ID       string `json:"siteId"`
	Name     string `json:"siteName"`
	URL      string `json:"url"`
	AdminURL string `json:"adminUrl,omitempty"`
}

// Deploy is one content push to a Site.
type Deploy struct {
	ID          string     `json:"deployId"`
	SiteID      string     `json:"siteId"`
	URL         string     `json:"url"`
	State       string     `json:"state"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Event is a fire-and-forget notification sent to the automation webhook.
type Event struct {
	Type string
	Data map[string]any
}

type NotifyResult struct {
	Delivered  bool
	Skipped    bool
	StatusCode int
	Message    string
}
