package validators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/coastvine/seoauditor/internal/config"
	"github.com/coastvine/seoauditor/internal/model"
	"github.com/coastvine/seoauditor/pkg/globmatch"
)

// Schema validates each page's JSON-LD blocks for well-formedness and
// checks route-scoped required schema.org types (§4.5.5).
func Schema(signals map[string]model.ExtractedSignals, cfg config.ValidatorConfig) []model.AuditIssue {
	var issues []model.AuditIssue

	for _, pageURL := range sortedURLs(signals) {
		s := signals[pageURL]

		for _, block := range s.JSONLD {
			if block.ParseError {
				issues = append(issues, issue(model.SeverityP0, model.CategorySchema, pageURL,
					"JSON-LD block failed to parse", block.RawSnippet))
				continue
			}
			issues = append(issues, blockIssues(pageURL, block, cfg.DeprecatedSchemaTypes)...)
		}

		issues = append(issues, requiredRouteIssues(pageURL, s, cfg.RequiredSchemaByRoute)...)
	}

	return issues
}

func blockIssues(pageURL string, block model.JSONLDBlock, deprecated []string) []model.AuditIssue {
	var issues []model.AuditIssue

	ctx, hasContext := block.Data["@context"]
	if !hasContext {
		issues = append(issues, issue(model.SeverityP1, model.CategorySchema, pageURL, "JSON-LD block is missing @context", ""))
	} else if !contextMentionsSchemaOrg(ctx) {
		issues = append(issues, issue(model.SeverityP2, model.CategorySchema, pageURL, "JSON-LD @context does not reference schema.org", fmt.Sprint(ctx)))
	}

	_, hasType := block.Data["@type"]
	_, hasGraph := block.Data["@graph"]
	if !hasType && !hasGraph {
		issues = append(issues, issue(model.SeverityP1, model.CategorySchema, pageURL, "JSON-LD block is missing @type", ""))
	}

	for _, t := range typeValues(block.Data["@type"]) {
		if containsString(deprecated, t) {
			issues = append(issues, issue(model.SeverityP1, model.CategorySchema, pageURL,
				fmt.Sprintf("JSON-LD uses deprecated schema type %q", t), ""))
		}
	}

	return issues
}

func contextMentionsSchemaOrg(ctx any) bool {
	switch v := ctx.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), "schema.org")
	case map[string]any:
		for _, val := range v {
			if s, ok := val.(string); ok && strings.Contains(strings.ToLower(s), "schema.org") {
				return true
			}
		}
	}
	return false
}

func typeValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func containsString(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

// collectAllTypes gathers every @type value present across a page's
// JSON-LD blocks, recursing one level into @graph arrays.
func collectAllTypes(blocks []model.JSONLDBlock) []string {
	var out []string
	for _, b := range blocks {
		if b.ParseError {
			continue
		}
		out = append(out, typeValues(b.Data["@type"])...)
		if graph, ok := b.Data["@graph"].([]any); ok {
			for _, item := range graph {
				if node, ok := item.(map[string]any); ok {
					out = append(out, typeValues(node["@type"])...)
				}
			}
		}
	}
	return out
}

func requiredRouteIssues(pageURL string, s model.ExtractedSignals, requiredByRoute map[string][]string) []model.AuditIssue {
	if len(requiredByRoute) == 0 {
		return nil
	}
	present := collectAllTypes(s.JSONLD)
	presentSet := make(map[string]bool, len(present))
	for _, t := range present {
		presentSet[strings.ToLower(t)] = true
	}

	patterns := make([]string, 0, len(requiredByRoute))
	for p := range requiredByRoute {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	var issues []model.AuditIssue
	for _, pattern := range patterns {
		m, err := globmatch.Compile(pattern)
		if err != nil || !m.Match(routePath(pageURL)) {
			continue
		}
		var missing []string
		for _, required := range requiredByRoute[pattern] {
			if !presentSet[strings.ToLower(required)] {
				missing = append(missing, required)
			}
		}
		if len(missing) > 0 {
			issues = append(issues, issue(model.SeverityP1, model.CategorySchema, pageURL,
				fmt.Sprintf("missing required schema type(s) for route pattern %q", pattern),
				strings.Join(missing, ", ")))
		}
	}
	return issues
}

func routePath(pageURL string) string {
	idx := strings.Index(pageURL, "://")
	if idx < 0 {
		return pageURL
	}
	rest := pageURL[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		return rest[slash:]
	}
	return "/"
}
