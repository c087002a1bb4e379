// Package riskscan implements the three cross-page abuse heuristics that
// operate over the whole signals map rather than one page at a time:
// scaled content, site reputation drift, and expired-domain repurposing
// (§4.6 of the audit specification). These are syntactic proxies for the
// search-engine spam policy categories of the same name, not intent
// detection.
package riskscan

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/model"
)

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

// tokenize lowercases s, replaces runs of non-alphanumeric characters with
// a single space, and splits into non-empty words.
func tokenize(s string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(s), " ")
	fields := strings.Fields(cleaned)
	return fields
}

// shingles builds the set of n-word shingles over tokens.
func shingles(tokens []string, n int) map[string]bool {
	set := map[string]bool{}
	if len(tokens) < n {
		if len(tokens) > 0 {
			set[strings.Join(tokens, " ")] = true
		}
		return set
	}
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = true
	}
	return set
}

// jaccard computes |A∩B| / |A∪B| over two shingle sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// unionFind is a minimal disjoint-set structure over the indices of a
// fixed-size slice.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

func (u *unionFind) clusters() map[int][]int {
	out := map[int][]int{}
	for i := range u.parent {
		root := u.find(i)
		out[root] = append(out[root], i)
	}
	return out
}

// combinedText concatenates the signals this heuristic treats as a page's
// "content": title, meta description, and every heading's text.
func combinedText(s model.ExtractedSignals) string {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteString(" ")
	b.WriteString(s.MetaDescription)
	for _, h := range s.Headings {
		b.WriteString(" ")
		b.WriteString(h.Text)
	}
	return b.String()
}

func pathOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return rest[slash:]
	}
	return "/"
}

func hostOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return ""
	}
	rest := rawURL[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return rest[:slash]
	}
	return rest
}

func sample(urls []string, max int) []string {
	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)
	if len(sorted) <= max {
		return sorted
	}
	return sorted[:max]
}

func sortedURLs(m map[string]model.ExtractedSignals) []string {
	urls := make([]string, 0, len(m))
	for u := range m {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func issue(sev model.Severity, url, msg, evidence string) model.AuditIssue {
	return model.AuditIssue{Severity: sev, Category: model.CategoryRisk, URL: url, Message: msg, Evidence: evidence}
}

// wordSet turns a slice into a lookup set.
func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// normalizeForInbound lowercases the host and strips a trailing slash, for
// comparing link targets against page URLs regardless of minor formatting
// differences.
func normalizeForInbound(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

func significantWords(text string, minLen int, stop map[string]bool) []string {
	var out []string
	for _, w := range tokenize(text) {
		if len(w) > minLen && !stop[w] {
			out = append(out, w)
		}
	}
	return out
}
