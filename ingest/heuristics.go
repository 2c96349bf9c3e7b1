package ingest

import (
	"regexp"
	"strings"

	"github.com/anurag-bit/sih-tj/catalog"
)

// knownTechs maps a detection pattern to the canonical tech stack entry.
// Order matters: entries are scanned in sequence and appended in match order.
var knownTechs = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`(?i)\bmachine learning\b`), "Machine Learning"},
	{regexp.MustCompile(`(?i)\bdeep learning\b`), "Deep Learning"},
	{regexp.MustCompile(`(?i)\bcomputer vision\b`), "Computer Vision"},
	{regexp.MustCompile(`(?i)\bartificial intelligence\b|\bAI\b`), "AI"},
	{regexp.MustCompile(`(?i)\bblockchain\b`), "Blockchain"},
	{regexp.MustCompile(`(?i)\bIoT\b|\binternet of things\b`), "IoT"},
	{regexp.MustCompile(`(?i)\bpython\b`), "Python"},
	{regexp.MustCompile(`(?i)\bjavascript\b`), "JavaScript"},
	{regexp.MustCompile(`(?i)\bjava\b`), "Java"},
	{regexp.MustCompile(`(?i)\breact\b`), "React"},
	{regexp.MustCompile(`(?i)\bnode\.?js\b`), "Node.js"},
	{regexp.MustCompile(`(?i)\bflutter\b`), "Flutter"},
	{regexp.MustCompile(`(?i)\bandroid\b`), "Android"},
	{regexp.MustCompile(`(?i)\btensorflow\b`), "TensorFlow"},
	{regexp.MustCompile(`(?i)\bopencv\b`), "OpenCV"},
	{regexp.MustCompile(`(?i)\barduino\b`), "Arduino"},
	{regexp.MustCompile(`(?i)\braspberry pi\b`), "Raspberry Pi"},
	{regexp.MustCompile(`(?i)\bdrone(s)?\b`), "Drones"},
	{regexp.MustCompile(`(?i)\bcloud\b`), "Cloud"},
	{regexp.MustCompile(`(?i)\bmobile app\b`), "Mobile App"},
	{regexp.MustCompile(`(?i)\bweb (app|portal|platform)\b`), "Web App"},
	{regexp.MustCompile(`(?i)\bdatabase\b|\bSQL\b`), "Database"},
	{regexp.MustCompile(`(?i)\bGIS\b|\bgeospatial\b`), "GIS"},
	{regexp.MustCompile(`(?i)\bNLP\b|\bnatural language\b`), "NLP"},
	{regexp.MustCompile(`(?i)\bsensor(s)?\b`), "Sensors"},
}

// hardKeywords push the difficulty estimate up, easyKeywords pull it down.
var (
	hardKeywords = []string{
		"machine learning", "deep learning", "artificial intelligence",
		"neural", "blockchain", "computer vision", "nlp",
		"cryptography", "quantum", "distributed", "real-time",
	}
	easyKeywords = []string{
		"website", "portal", "dashboard", "form", "display",
		"directory", "listing", "catalog",
	}
)

// inferTechStack scans free text for known technology mentions.
func inferTechStack(text string) []string {
	var stack []string
	for _, tech := range knownTechs {
		if tech.pattern.MatchString(text) {
			stack = append(stack, tech.name)
		}
	}
	return stack
}

// estimateDifficulty classifies a problem from its text and tech stack:
// two hard signals or a deep stack mean Hard, an easy signal or a shallow
// stack means Easy, everything else Medium.
func estimateDifficulty(text string, techStack []string) string {
	lower := strings.ToLower(text)

	hard := 0
	for _, kw := range hardKeywords {
		if strings.Contains(lower, kw) {
			hard++
		}
	}
	if hard >= 2 || len(techStack) >= 5 {
		return catalog.DifficultyHard
	}

	for _, kw := range easyKeywords {
		if strings.Contains(lower, kw) {
			return catalog.DifficultyEasy
		}
	}
	if len(techStack) <= 2 {
		return catalog.DifficultyEasy
	}
	return catalog.DifficultyMedium
}
