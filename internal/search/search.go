package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	FolderID   string `json:"folderId"`
	FolderName string `json:"folderName"`
	TopicCode  string `json:"topicCode,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterFolderID string // empty = all folders
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Objective  string `json:"objective"`
	Guidelines string `json:"guidelines"`
	FolderID   string `json:"folderId"`
	FolderName string `json:"folderName"`
	TopicCode  string `json:"topicCode"`
}
