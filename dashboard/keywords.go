package dashboard

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"github.com/anurag-bit/sih-tj/catalog"
	"github.com/anurag-bit/sih-tj/chromadb"
)

// stopWords are tokens excluded from keyword extraction: function words plus
// terms so common in problem statements they carry no signal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "been": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "they": {}, "will": {},
	"would": {}, "there": {}, "their": {}, "what": {}, "which": {},
	"when": {}, "where": {}, "while": {}, "should": {}, "could": {},
	"other": {}, "into": {}, "more": {}, "also": {}, "such": {},
	"these": {}, "those": {}, "each": {}, "then": {}, "than": {},
	"them": {}, "its": {}, "any": {}, "may": {}, "who": {}, "use": {},
	"used": {}, "need": {}, "needs": {}, "like": {}, "well": {},
	"system": {}, "systems": {}, "using": {}, "based": {},
	"develop": {}, "developing": {}, "development": {},
	"create": {}, "creating": {}, "build": {}, "building": {},
	"implement": {}, "implementation": {},
	"application": {}, "applications": {},
	"platform": {}, "solution": {}, "solutions": {},
}

// techAliases normalizes tech stack spellings so counts merge.
var techAliases = map[string]string{
	"js":                      "javascript",
	"node.js":                 "nodejs",
	"node":                    "nodejs",
	"reactjs":                 "react",
	"react.js":                "react",
	"vuejs":                   "vue",
	"vue.js":                  "vue",
	"postgresql":              "postgres",
	"kubernetes":              "k8s",
	"golang":                  "go",
	"artificial intelligence": "ai",
	"machine learning":        "ml",
}

// techIndicators mark a keyword as a technology term rather than a domain
// term. Matched by substring.
var techIndicators = []string{
	"python", "java", "javascript", "nodejs", "react", "vue", "angular",
	"flutter", "android", "ios", "docker", "k8s", "aws", "azure", "cloud",
	"api", "sql", "postgres", "mongodb", "redis", "blockchain", "iot",
	"sensor", "drone", "machine", "learning", "neural", "vision",
	"nlp", "data", "analytics", "app", "web", "mobile", "ai", "ml",
}

const minTokenLen = 3

// keywordCounter accumulates weighted keyword counts, remembering the order
// each keyword was first seen so ranking ties stay deterministic.
type keywordCounter struct {
	counts    map[string]int
	firstSeen map[string]int
	next      int
}

func newKeywordCounter() *keywordCounter {
	return &keywordCounter{
		counts:    map[string]int{},
		firstSeen: map[string]int{},
	}
}

func (k *keywordCounter) add(keyword string, weight int) {
	if _, ok := k.counts[keyword]; !ok {
		k.firstSeen[keyword] = k.next
		k.next++
	}
	k.counts[keyword] += weight
}

// addText tokenizes free text into lowercase alphabetic tokens of at least
// minTokenLen characters, skipping stop words.
func (k *keywordCounter) addText(text string, weight int) {
	if text == "" {
		return
	}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, tok := range tokens {
		if len(tok) < minTokenLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		k.add(tok, weight)
	}
}

// addTech counts one tech stack entry with double weight, normalized
// through the alias table.
func (k *keywordCounter) addTech(entry string) {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if entry == "" {
		return
	}
	if alias, ok := techAliases[entry]; ok {
		entry = alias
	}
	k.add(entry, 2)
}

// top returns the n highest-count keywords, ties broken by first-seen order.
func (k *keywordCounter) top(n int) []catalog.KeywordCount {
	keywords := make([]string, 0, len(k.counts))
	for kw := range k.counts {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		a, b := keywords[i], keywords[j]
		if k.counts[a] != k.counts[b] {
			return k.counts[a] > k.counts[b]
		}
		return k.firstSeen[a] < k.firstSeen[b]
	})
	if len(keywords) > n {
		keywords = keywords[:n]
	}
	out := make([]catalog.KeywordCount, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, catalog.KeywordCount{Keyword: kw, Count: k.counts[kw]})
	}
	return out
}

func isTechKeyword(keyword string) bool {
	for _, ind := range techIndicators {
		if strings.Contains(keyword, ind) {
			return true
		}
	}
	return false
}

// descriptionOf extracts the description: metadata field first, then the
// second line of the stored document.
func descriptionOf(md chromadb.Metadata, doc string) string {
	if d := metaField(md, "description", ""); d != "" {
		return d
	}
	if lines := strings.Split(doc, "\n"); len(lines) >= 2 {
		return lines[1]
	}
	return ""
}

// parseTechList decodes the JSON-encoded technology_stack metadata field.
func parseTechList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
