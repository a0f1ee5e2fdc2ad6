package enrichment

import (
	"net/url"
	"strings"
)

// Traffic sources.
const (
	SourceDirect   = "Direct"
	SourceSearch   = "Search"
	SourceSocial   = "Social"
	SourceAI       = "AI"
	SourceReferral = "Referral"
)

// RefererClassifier buckets Referer headers into traffic sources.
type RefererClassifier struct {
	categories []category
}

type category struct {
	source  string
	domains []string
}

func NewRefererClassifier() *RefererClassifier {
	return &RefererClassifier{
		categories: []category{
			{source: SourceAI, domains: []string{
				"chatgpt.com", "claude.ai", "gemini.google.com", "perplexity.ai", "copilot.microsoft.com",
			}},
			{source: SourceSearch, domains: []string{
				"google.com", "bing.com", "yahoo.com", "duckduckgo.com", "baidu.com", "yandex.ru", "ecosia.org",
			}},
			{source: SourceSocial, domains: []string{
				"facebook.com", "twitter.com", "x.com", "t.co", "instagram.com", "linkedin.com",
				"pinterest.com", "reddit.com", "tiktok.com", "youtube.com", "threads.net", "mastodon.social",
			}},
		},
	}
}

// Classify returns one of the Source* constants.
func (r *RefererClassifier) Classify(referer string) string {
	if referer == "" {
		return SourceDirect
	}

	parsed, err := url.Parse(referer)
	if err != nil || parsed.Hostname() == "" {
		return SourceDirect
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	for _, c := range r.categories {
		for _, d := range c.domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return c.source
			}
		}
	}

	return SourceReferral
}
