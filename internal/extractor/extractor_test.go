package extractor

import "testing"

const sampleHTML = `<!DOCTYPE html>
<html lang="en" dir="ltr">
<head>
<title>Welcome to Example Site Homepage</title>
<meta name="description" content="A short description of the homepage.">
<meta name="robots" content="index, follow">
<link rel="canonical" href="https://ex.com/">
<link rel="alternate" hreflang="ar" href="https://ex.com/ar/">
<link hreflang="en-GB" rel="alternate" href="https://ex.com/">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"Organization"}</script>
<script type="application/ld+json">not json</script>
</head>
<body>
<h1>Main Heading</h1>
<h2>Sub <b>Heading</b></h2>
<a href="/about">About</a>
<a href="https://other.com/page">External</a>
<a href="#">Skip me</a>
<a href="mailto:a@b.com">Mail</a>
<p>Some body text with a handful of words for counting purposes here.</p>
</body>
</html>`

func TestExtract_Title(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if s.Title != "Welcome to Example Site Homepage" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestExtract_MetaAndCanonical(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if s.MetaDescription != "A short description of the homepage." {
		t.Errorf("description = %q", s.MetaDescription)
	}
	if s.Canonical != "https://ex.com/" {
		t.Errorf("canonical = %q", s.Canonical)
	}
	if s.RobotsMeta != "index, follow" {
		t.Errorf("robots = %q", s.RobotsMeta)
	}
}

func TestExtract_HreflangBothAttributeOrders(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if len(s.Hreflangs) != 2 {
		t.Fatalf("expected 2 hreflang alternates, got %d: %+v", len(s.Hreflangs), s.Hreflangs)
	}
}

func TestExtract_Headings(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if len(s.Headings) != 2 {
		t.Fatalf("expected 2 headings, got %d", len(s.Headings))
	}
	if s.Headings[1].Text != "Sub Heading" {
		t.Errorf("heading text = %q, want stripped inner tags", s.Headings[1].Text)
	}
}

func TestExtract_JSONLDSentinelOnParseError(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if len(s.JSONLD) != 2 {
		t.Fatalf("expected 2 JSON-LD blocks, got %d", len(s.JSONLD))
	}
	if s.JSONLD[0].ParseError {
		t.Error("first block should parse successfully")
	}
	if !s.JSONLD[1].ParseError {
		t.Error("second block should be a parse-error sentinel")
	}
}

func TestExtract_LinksInternalExternal(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if len(s.InternalLinks) != 1 || s.InternalLinks[0].Href != "https://ex.com/about" {
		t.Errorf("internal links = %+v", s.InternalLinks)
	}
	if len(s.ExternalLinks) != 1 || s.ExternalLinks[0].Href != "https://other.com/page" {
		t.Errorf("external links = %+v", s.ExternalLinks)
	}
}

func TestExtract_LangDir(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if s.HTMLLang != "en" || s.HTMLDir != "ltr" {
		t.Errorf("lang=%q dir=%q", s.HTMLLang, s.HTMLDir)
	}
}

func TestExtract_WordCount(t *testing.T) {
	s := Extract(sampleHTML, "https://ex.com/", "https://ex.com")
	if s.WordCount == 0 {
		t.Error("expected nonzero word count")
	}
}

func TestExtract_MalformedHTMLNeverPanics(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Extract panicked on malformed input: %v", r)
		}
	}()
	Extract(`<html><title>Unterminated<body><a href=/no-quotes>link`, "https://ex.com/", "https://ex.com")
}

func TestExtract_HexAndDecimalEntities(t *testing.T) {
	html := `<title>Caf&#233; &#x26; Bar</title>`
	s := Extract(html, "https://ex.com/", "https://ex.com")
	if s.Title != "Café & Bar" {
		t.Errorf("title = %q", s.Title)
	}
}
