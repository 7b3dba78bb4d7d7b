package search

// Result is a single issue hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	CategoryID string `json:"category_id"`
	Status     string `json:"status"`
}

// Query describes a search request.
type Query struct {
	Text       string
	CategoryID string // empty = all categories
	Limit      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over issues.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// IssueRecord is the data we index for an issue.
type IssueRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Address     string `json:"address"`
	CategoryID  string `json:"categoryId"`
	Status      string `json:"status"`
}
