package webz

// searchResponse mirrors the Webz.io newsApiLite JSON envelope.
type searchResponse struct {
	Posts                []post `json:"posts"`
	TotalResults         int    `json:"totalResults"`
	MoreResultsAvailable int    `json:"moreResultsAvailable"`
	Next                 string `json:"next"`
	RequestsLeft         int    `json:"requestsLeft"`
}

type post struct {
	Thread         thread   `json:"thread"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Published      string   `json:"published"`
	Language       string   `json:"language"`
	Sentiment      string   `json:"sentiment"`
	Categories     []string `json:"categories"`
	HighlightText  string   `json:"highlightText"`
	HighlightTitle string   `json:"highlightTitle"`
}

type thread struct {
	URL        string `json:"url"`
	Site       string `json:"site"`
	DomainRank int    `json:"domain_rank"`
}
