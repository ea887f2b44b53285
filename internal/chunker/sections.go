package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/dossier-core/internal/core/domain"
)

// unit is one section's worth of text to window over.
type unit struct {
	section string
	text    string
}

// Section headers recognised in English and Portuguese. A paragraph
// counts as a header when it is a single short line matching one of
// these, optionally numbered ("3. Metodologia") or punctuated.
var sectionPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"abstract", headerRe(`abstract|resumo`)},
	{"introduction", headerRe(`introduction|introdu[cç][aã]o`)},
	{"methodology", headerRe(`methodology|methods|metodologia|m[eé]todos`)},
	{"results", headerRe(`results|resultados`)},
	{"discussion", headerRe(`discussion|discuss[aã]o`)},
	{"conclusion", headerRe(`conclusions?|conclus[aã]o|conclus[oõ]es|considera[cç][oõ]es finais`)},
	{"references", headerRe(`references|refer[eê]ncias|bibliograf[ií]a|bibliography`)},
	{"appendices", headerRe(`appendix|appendices|ap[eê]ndices?|anexos?`)},
}

func headerRe(names string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^\s*(?:\d+(?:\.\d+)*[.)]?\s+)?(?:` + names + `)\s*[:.]?\s*$`)
}

// maxHeaderLen bounds how long a paragraph can be and still count as a
// header line.
const maxHeaderLen = 80

// splitSections walks the paragraphs of text and groups them under
// detected section headers. With fewer than two detected sections the
// whole text becomes a single unstructured unit.
func splitSections(text string) []unit {
	paragraphs := splitParagraphs(text)

	type rawSection struct {
		name  string
		paras []string
	}
	sections := []rawSection{{name: domain.SectionUnstructured}}
	detected := 0

	for _, p := range paragraphs {
		if name, ok := matchHeader(p); ok {
			sections = append(sections, rawSection{name: name})
			detected++
			continue
		}
		cur := &sections[len(sections)-1]
		cur.paras = append(cur.paras, p)
	}

	if detected < 2 {
		return []unit{{section: domain.SectionUnstructured, text: strings.Join(paragraphs, "\n\n")}}
	}

	var units []unit
	for _, s := range sections {
		if len(s.paras) == 0 {
			continue
		}
		units = append(units, unit{section: s.name, text: strings.Join(s.paras, "\n\n")})
	}
	if len(units) == 0 {
		return []unit{{section: domain.SectionUnstructured, text: strings.Join(paragraphs, "\n\n")}}
	}
	return units
}

// matchHeader reports whether a paragraph is a section header line.
func matchHeader(p string) (string, bool) {
	if len(p) > maxHeaderLen || strings.Contains(p, "\n") {
		return "", false
	}
	for _, sp := range sectionPatterns {
		if sp.re.MatchString(p) {
			return sp.name, true
		}
	}
	return "", false
}

// splitParagraphs splits on blank lines. PDFs often come out with
// single newlines only; when that split finds few paragraphs and a
// single-newline split finds at least three times as many, the
// single-newline split wins.
func splitParagraphs(text string) []string {
	primary := cleanSplit(text, "\n\n")
	if len(primary) >= 20 {
		return primary
	}
	alternative := cleanSplit(text, "\n")
	if len(alternative) >= 3*len(primary) {
		return alternative
	}
	return primary
}

func cleanSplit(text, sep string) []string {
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
