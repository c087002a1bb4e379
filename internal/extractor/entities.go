package extractor

import (
	"strconv"
	"strings"
)

var namedEntities = map[string]string{
	"amp": "&", "lt": "<", "gt": ">", "quot": `"`, "apos": "'",
	"nbsp": " ", "mdash": "—", "ndash": "–",
	"hellip": "…", "copy": "©", "reg": "®",
	"rsquo": "’", "lsquo": "‘", "rdquo": "”", "ldquo": "“",
}

// decodeEntities decodes named (&amp;), decimal (&#39;), and hex (&#x27;)
// HTML entities.
func decodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '&' {
			b.WriteByte(s[i])
			continue
		}
		end := strings.IndexByte(s[i:], ';')
		if end < 0 || end > 12 {
			b.WriteByte(s[i])
			continue
		}
		entity := s[i+1 : i+end]
		if replacement, ok := decodeOneEntity(entity); ok {
			b.WriteString(replacement)
			i += end
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func decodeOneEntity(entity string) (string, bool) {
	if entity == "" {
		return "", false
	}
	if entity[0] == '#' {
		var code int64
		var err error
		if len(entity) > 1 && (entity[1] == 'x' || entity[1] == 'X') {
			code, err = strconv.ParseInt(entity[2:], 16, 32)
		} else {
			code, err = strconv.ParseInt(entity[1:], 10, 32)
		}
		if err != nil || code < 0 || code > 0x10FFFF {
			return "", false
		}
		return string(rune(code)), true
	}
	if replacement, ok := namedEntities[entity]; ok {
		return replacement, true
	}
	return "", false
}
