package github

import (
	"strings"
	"testing"

	"github.com/anurag-bit/sih-tj/catalog"
)

func TestAnalyzeTechStack_Weights(t *testing.T) {
	repos := []catalog.Repository{
		{Name: "a", Language: "Python", Topics: []string{"django"}},
		{Name: "b", Language: "Python", Description: "A small flask service"},
		{Name: "c", Language: "Go", Topics: []string{"cli"}},
	}

	stack := analyzeTechStack(repos)
	if len(stack) == 0 || stack[0] != "python" {
		t.Fatalf("stack = %v, want python first (weight 4)", stack)
	}

	found := map[string]bool{}
	for _, tech := range stack {
		found[tech] = true
	}
	for _, want := range []string{"python", "go", "django", "flask", "cli"} {
		if !found[want] {
			t.Errorf("missing %q in %v", want, stack)
		}
	}
}

func TestAnalyzeTechStack_TextScan(t *testing.T) {
	repos := []catalog.Repository{
		{Name: "a", ReadmeContent: "Built with TensorFlow and PyTorch for vision tasks."},
	}
	stack := analyzeTechStack(repos)

	found := map[string]bool{}
	for _, tech := range stack {
		found[tech] = true
	}
	if !found["tensorflow"] || !found["pytorch"] {
		t.Errorf("stack = %v", stack)
	}
}

func TestAnalyzeTechStack_Cap(t *testing.T) {
	var repos []catalog.Repository
	topics := []string{
		"aa", "bb", "cc", "dd", "ee", "ff", "gg", "hh", "ii", "jj",
		"kk", "ll", "mm", "nn", "oo", "pp", "qq", "rr", "ss", "tt",
		"uu", "vv", "ww",
	}
	for _, topic := range topics {
		repos = append(repos, catalog.Repository{Name: topic, Topics: []string{topic}})
	}

	stack := analyzeTechStack(repos)
	if len(stack) != techStackCap {
		t.Errorf("len = %d, want %d", len(stack), techStackCap)
	}
}

func TestBuildProfileDocument_Sections(t *testing.T) {
	profile := catalog.GitHubProfile{
		Username: "octocat",
		Repositories: []catalog.Repository{
			{
				Name:          "weather-ml",
				Description:   "Rainfall prediction with gradient boosting",
				Topics:        []string{"machine-learning", "weather"},
				ReadmeContent: "This project predicts rainfall using historical sensor data. It trains daily. Short.",
			},
			{Name: "dotfiles"},
		},
		TechStack: []string{"python", "pandas"},
	}

	doc := BuildProfileDocument(profile)

	for _, want := range []string{
		"Technologies: python, pandas",
		"Projects: weather-ml: Rainfall prediction with gradient boosting",
		"Interests: machine-learning, weather",
		"Project details: This project predicts rainfall using historical sensor data",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
	if !strings.Contains(doc, " | ") {
		t.Error("sections must be joined with ' | '")
	}
	if strings.Contains(doc, "Short") {
		t.Error("sentences at or under the minimum length must be dropped")
	}
}

func TestBuildProfileDocument_EmptyProfile(t *testing.T) {
	doc := BuildProfileDocument(catalog.GitHubProfile{Username: "ghost"})
	if doc != "" {
		t.Errorf("empty profile document = %q", doc)
	}
}

func TestBuildProfileDocument_OmitsEmptySections(t *testing.T) {
	profile := catalog.GitHubProfile{
		Username:  "minimal",
		TechStack: []string{"go"},
	}
	doc := BuildProfileDocument(profile)
	if doc != "Technologies: go" {
		t.Errorf("document = %q", doc)
	}
}

func TestReadmeSnippets_Caps(t *testing.T) {
	long := strings.Repeat("x", 30)
	repos := []catalog.Repository{
		{ReadmeContent: long + ". " + long + ". " + long + "."},
		{ReadmeContent: long + ". " + long + "."},
	}

	snippets := readmeSnippets(repos)
	if len(snippets) != docSnippetCap {
		t.Errorf("snippets = %d, want %d", len(snippets), docSnippetCap)
	}
}
