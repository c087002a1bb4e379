// Package extractor parses a fetched HTML document into the fixed set of
// head-level SEO signals the validators consume. Parsing is deliberately
// regex-level, never a full HTML/DOM parser, so the extractor tolerates the
// malformed markup a real crawl will encounter (§4.4, §9 of the audit
// specification: a DOM parser is allowed but the observable extraction
// behavior described here, including graceful degradation, must match).
package extractor

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/coastvine/seoauditor/internal/model"
)

var (
	titleRe       = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaTagRe     = regexp.MustCompile(`(?is)<meta\b([^>]*)>`)
	linkTagRe     = regexp.MustCompile(`(?is)<link\b([^>]*)>`)
	headingRe     = regexp.MustCompile(`(?is)<h([1-6])\b[^>]*>(.*?)</h[1-6]>`)
	jsonLDRe      = regexp.MustCompile(`(?is)<script\b[^>]*type\s*=\s*["']?application/ld\+json["']?[^>]*>(.*?)</script>`)
	anchorRe      = regexp.MustCompile(`(?is)<a\b([^>]*)>(.*?)</a>`)
	htmlTagRe     = regexp.MustCompile(`(?is)<html\b([^>]*)>`)
	bodyTagOpenRe = regexp.MustCompile(`(?is)<body\b([^>]*)>`)
	bodyContentRe = regexp.MustCompile(`(?is)<body\b[^>]*>(.*)</body>`)
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</(script|style|noscript)>`)
	anyTagRe      = regexp.MustCompile(`(?is)<[^>]*>`)
	wsRe          = regexp.MustCompile(`\s+`)
)

func attrRegex(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\s*=\s*("([^"]*)"|'([^']*)'|([^\s"'>]+))`)
}

var attrCache = map[string]*regexp.Regexp{}

func getAttr(attrs, name string) (string, bool) {
	re, ok := attrCache[name]
	if !ok {
		re = attrRegex(name)
		attrCache[name] = re
	}
	m := re.FindStringSubmatch(attrs)
	if m == nil {
		return "", false
	}
	for _, v := range m[2:] {
		if v != "" {
			return decodeEntities(v), true
		}
	}
	// Matched an empty quoted value, e.g. content="".
	return "", true
}

// Extract parses html (the raw response body of pageURL) into its
// ExtractedSignals. baseURL is used to classify internal vs external
// links. Extract never panics or errors; malformed input simply yields
// empty/nil fields.
func Extract(html, pageURL, baseURL string) model.ExtractedSignals {
	signals := model.ExtractedSignals{URL: pageURL}

	signals.Title = strings.TrimSpace(stripTags(firstMatch(titleRe, html, 1)))
	signals.JSONLD = extractJSONLD(html)
	signals.Canonical, signals.MetaDescription, signals.RobotsMeta, signals.Hreflangs = extractHeadMeta(html)
	signals.Headings = extractHeadings(html)
	signals.InternalLinks, signals.ExternalLinks = extractLinks(html, pageURL, baseURL)
	signals.HTMLLang, signals.HTMLDir, signals.BodyDir = extractLangDir(html)
	signals.WordCount = countWords(html)

	return signals
}

func firstMatch(re *regexp.Regexp, s string, group int) string {
	m := re.FindStringSubmatch(s)
	if m == nil || group >= len(m) {
		return ""
	}
	return m[group]
}

func extractHeadMeta(html string) (canonical, description, robots string, hreflangs []model.HreflangAlternate) {
	for _, m := range linkTagRe.FindAllStringSubmatch(html, -1) {
		attrs := m[1]
		rel, _ := getAttr(attrs, "rel")
		relLower := strings.ToLower(rel)

		if canonical == "" && relLower == "canonical" {
			if href, ok := getAttr(attrs, "href"); ok {
				canonical = href
			}
		}

		if strings.Contains(relLower, "alternate") {
			hreflang, hasHreflang := getAttr(attrs, "hreflang")
			href, hasHref := getAttr(attrs, "href")
			if hasHreflang && hasHref {
				hreflangs = append(hreflangs, model.HreflangAlternate{Lang: hreflang, Href: href})
			}
		}
	}
	hreflangs = dedupHreflang(hreflangs)

	for _, m := range metaTagRe.FindAllStringSubmatch(html, -1) {
		attrs := m[1]
		name, _ := getAttr(attrs, "name")
		nameLower := strings.ToLower(name)

		if description == "" && nameLower == "description" {
			if content, ok := getAttr(attrs, "content"); ok {
				description = content
			}
		}
		if robots == "" && nameLower == "robots" {
			if content, ok := getAttr(attrs, "content"); ok {
				robots = content
			}
		}
	}

	return canonical, description, robots, hreflangs
}

func dedupHreflang(in []model.HreflangAlternate) []model.HreflangAlternate {
	seen := make(map[string]bool, len(in))
	out := make([]model.HreflangAlternate, 0, len(in))
	for _, h := range in {
		key := h.Lang + "|" + h.Href
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

func extractHeadings(html string) []model.Heading {
	cleaned := scriptStyleRe.ReplaceAllString(html, "")
	var headings []model.Heading
	for _, m := range headingRe.FindAllStringSubmatch(cleaned, -1) {
		level := int(m[1][0] - '0')
		text := strings.TrimSpace(wsRe.ReplaceAllString(stripTags(m[2]), " "))
		if text == "" {
			continue
		}
		headings = append(headings, model.Heading{Level: level, Text: text})
	}
	return headings
}

func extractJSONLD(html string) []model.JSONLDBlock {
	var blocks []model.JSONLDBlock
	for _, m := range jsonLDRe.FindAllStringSubmatch(html, -1) {
		raw := strings.TrimSpace(m[1])
		if raw == "" {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			snippet := raw
			if len(snippet) > 500 {
				snippet = snippet[:500]
			}
			blocks = append(blocks, model.JSONLDBlock{ParseError: true, RawSnippet: snippet})
			continue
		}
		switch v := parsed.(type) {
		case map[string]any:
			blocks = append(blocks, model.JSONLDBlock{Data: v})
		case []any:
			blocks = append(blocks, model.JSONLDBlock{Data: map[string]any{"@graph": v}})
		default:
			blocks = append(blocks, model.JSONLDBlock{Data: map[string]any{}})
		}
	}
	return blocks
}

func extractLinks(html, pageURL, baseURL string) (internal, external []model.Link) {
	base, baseErr := url.Parse(pageURL)
	site, siteErr := url.Parse(baseURL)
	if baseErr != nil || siteErr != nil {
		return nil, nil
	}
	siteHost := strings.ToLower(site.Hostname())

	seenInternal := map[string]bool{}
	seenExternal := map[string]bool{}

	for _, m := range anchorRe.FindAllStringSubmatch(html, -1) {
		attrs := m[1]
		innerHTML := m[2]
		href, ok := getAttr(attrs, "href")
		if !ok {
			continue
		}
		if href == "#" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") || strings.HasPrefix(href, "javascript:") {
			continue
		}
		rel, _ := getAttr(attrs, "rel")
		text := strings.TrimSpace(stripTags(innerHTML))

		isInternal := strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//")
		isInternal = isInternal || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?")

		var resolvedHost string
		resolved, err := base.Parse(href)
		if err != nil {
			continue
		}
		resolvedHost = strings.ToLower(resolved.Hostname())

		if !isInternal {
			if strings.HasPrefix(href, "//") {
				isInternal = resolvedHost == siteHost
			} else if resolved.IsAbs() {
				isInternal = resolvedHost == siteHost
			} else {
				isInternal = true
			}
		}

		resolvedStr := strings.TrimRight(resolved.String(), "/")
		link := model.Link{Href: resolvedStr, Text: text, Rel: rel}

		if isInternal {
			if !seenInternal[resolvedStr] {
				seenInternal[resolvedStr] = true
				internal = append(internal, link)
			}
		} else {
			if !seenExternal[resolvedStr] {
				seenExternal[resolvedStr] = true
				external = append(external, link)
			}
		}
	}

	return internal, external
}

func extractLangDir(html string) (htmlLang, htmlDir, bodyDir string) {
	if m := htmlTagRe.FindStringSubmatch(html); m != nil {
		if lang, ok := getAttr(m[1], "lang"); ok {
			htmlLang = lang
		}
		if dir, ok := getAttr(m[1], "dir"); ok {
			htmlDir = dir
		}
	}
	if m := bodyTagOpenRe.FindStringSubmatch(html); m != nil {
		if dir, ok := getAttr(m[1], "dir"); ok {
			bodyDir = dir
		}
	}
	return htmlLang, htmlDir, bodyDir
}

func countWords(html string) int {
	body := html
	if m := bodyContentRe.FindStringSubmatch(html); m != nil {
		body = m[1]
	}
	body = scriptStyleRe.ReplaceAllString(body, " ")
	body = stripTags(body)
	body = decodeEntities(body)
	body = strings.TrimSpace(wsRe.ReplaceAllString(body, " "))
	if body == "" {
		return 0
	}
	return len(strings.Split(body, " "))
}

func stripTags(s string) string {
	return decodeEntities(anyTagRe.ReplaceAllString(s, " "))
}
