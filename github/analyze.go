package github

import (
	"regexp"
	"sort"
	"strings"

	"github.com/anurag-bit/sih-tj/catalog"
)

const (
	techStackCap = 20

	docTechCap    = 10
	docProjectCap = 10
	docTopicCap   = 15
	docReadmeCap  = 5
	docSnippetCap = 3

	minSentenceLen = 20
)

// techPattern matches well-known technology names in free text.
var techPattern = regexp.MustCompile(`(?i)\b(python|javascript|typescript|java|kotlin|swift|golang|rust|ruby|php|scala|react|angular|vue|svelte|nextjs|django|flask|fastapi|spring|express|flutter|android|ios|docker|kubernetes|terraform|aws|azure|gcp|tensorflow|pytorch|keras|pandas|numpy|opencv|mongodb|postgresql|postgres|mysql|redis|kafka|rabbitmq|graphql|grpc|blockchain|solidity|arduino|raspberry)\b`)

// analyzeTechStack infers a user's technologies from their repositories:
// primary language counts double, topics and free-text mentions count once.
// Returns up to techStackCap entries, highest frequency first.
func analyzeTechStack(repos []catalog.Repository) []string {
	counts := map[string]int{}
	firstSeen := map[string]int{}
	next := 0

	bump := func(tech string, weight int) {
		tech = strings.ToLower(strings.TrimSpace(tech))
		if tech == "" {
			return
		}
		if _, ok := counts[tech]; !ok {
			firstSeen[tech] = next
			next++
		}
		counts[tech] += weight
	}

	for _, repo := range repos {
		bump(repo.Language, 2)
		for _, topic := range repo.Topics {
			bump(topic, 1)
		}
		text := repo.Description + " " + repo.ReadmeContent
		for _, match := range techPattern.FindAllString(text, -1) {
			bump(match, 1)
		}
	}

	techs := make([]string, 0, len(counts))
	for tech := range counts {
		techs = append(techs, tech)
	}
	sort.Slice(techs, func(i, j int) bool {
		a, b := techs[i], techs[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstSeen[a] < firstSeen[b]
	})
	if len(techs) > techStackCap {
		techs = techs[:techStackCap]
	}
	return techs
}

// BuildProfileDocument renders a profile as the synthetic query document fed
// to semantic search: fixed-order sections joined by " | ", empty sections
// omitted.
func BuildProfileDocument(profile catalog.GitHubProfile) string {
	var sections []string

	if len(profile.TechStack) > 0 {
		techs := profile.TechStack
		if len(techs) > docTechCap {
			techs = techs[:docTechCap]
		}
		sections = append(sections, "Technologies: "+strings.Join(techs, ", "))
	}

	var projects []string
	for _, repo := range profile.Repositories {
		if repo.Description == "" {
			continue
		}
		projects = append(projects, repo.Name+": "+repo.Description)
		if len(projects) >= docProjectCap {
			break
		}
	}
	if len(projects) > 0 {
		sections = append(sections, "Projects: "+strings.Join(projects, "; "))
	}

	if topics := collectTopics(profile.Repositories, docTopicCap); len(topics) > 0 {
		sections = append(sections, "Interests: "+strings.Join(topics, ", "))
	}

	if snippets := readmeSnippets(profile.Repositories); len(snippets) > 0 {
		sections = append(sections, "Project details: "+strings.Join(snippets, ". "))
	}

	return strings.Join(sections, " | ")
}

// collectTopics deduplicates repository topics in encounter order.
func collectTopics(repos []catalog.Repository, limit int) []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, repo := range repos {
		for _, topic := range repo.Topics {
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
			if len(topics) >= limit {
				return topics
			}
		}
	}
	return topics
}

// readmeSnippets pulls up to docSnippetCap substantial sentences from the
// first docReadmeCap repositories that carry a README excerpt.
func readmeSnippets(repos []catalog.Repository) []string {
	var snippets []string
	scanned := 0
	for _, repo := range repos {
		if repo.ReadmeContent == "" {
			continue
		}
		scanned++
		taken := 0
		for _, sentence := range strings.Split(repo.ReadmeContent, ".") {
			sentence = strings.TrimSpace(sentence)
			if len(sentence) <= minSentenceLen {
				continue
			}
			snippets = append(snippets, sentence)
			taken++
			if taken >= 2 || len(snippets) >= docSnippetCap {
				break
			}
		}
		if len(snippets) >= docSnippetCap || scanned >= docReadmeCap {
			break
		}
	}
	return snippets
}
