package generate

import (
	"regexp"
	"strings"
)

var (
	questionArtifacts = []string{
		"<s> [OUT]", "[/OUT] </s>", "<s>", "</s>", "[OUT]", "[/OUT]",
		"**Question:**", "**Question (", "Question:", "Question (",
		"<|im_start|>", "<|im_end|>", "[INST]", "[/INST]",
	}
	answerArtifacts = []string{
		"<s> [OUT]", "[/OUT] </s>", "<s>", "</s>", "[OUT]", "[/OUT]",
		"**Answer:**", "**Model Answer:**", "Answer:", "Model Answer:", "Response:",
		"<|im_start|>", "<|im_end|>", "[INST]", "[/INST]",
	}

	tagRegex     = regexp.MustCompile(`<[^>]+>`)
	bracketRegex = regexp.MustCompile(`\[[^\]]+\]`)
	boldRegex    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRegex  = regexp.MustCompile(`\*([^*]+)\*`)
	spaceRegex   = regexp.MustCompile(`\s+`)

	questionStarts = []string{
		"what", "how", "why", "when", "where", "which",
		"explain", "describe", "compare", "design", "evaluate",
	}
)

const minCleanLen = 10

// cleanModelText strips chat-template tokens, tags and markdown emphasis.
func cleanModelText(text string, artifacts []string) string {
	text = strings.TrimSpace(text)
	for _, a := range artifacts {
		text = strings.TrimSpace(strings.ReplaceAll(text, a, ""))
	}
	text = tagRegex.ReplaceAllString(text, "")
	text = bracketRegex.ReplaceAllString(text, "")
	text = boldRegex.ReplaceAllString(text, "$1")
	text = italicRegex.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// CleanQuestion reduces raw model output to a single question sentence.
// ok is false when nothing usable is left.
func CleanQuestion(raw string) (string, bool) {
	text := cleanModelText(raw, questionArtifacts)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
	if len(text) < minCleanLen || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "[") {
		return "", false
	}

	lower := strings.ToLower(text)
	isQuestion := false
	for _, w := range questionStarts {
		if strings.HasPrefix(lower, w) {
			isQuestion = true
			break
		}
	}
	switch {
	case isQuestion && !strings.HasSuffix(text, "?"):
		text += "?"
	case !isQuestion && !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "?"):
		text += "."
	}
	return text, true
}

// CleanAnswer normalizes a model answer. ok is false when nothing usable is
// left.
func CleanAnswer(raw string) (string, bool) {
	text := strings.TrimSpace(spaceRegex.ReplaceAllString(cleanModelText(raw, answerArtifacts), " "))
	if len(text) < minCleanLen || strings.HasPrefix(text, "<") || strings.HasPrefix(text, "[") {
		return "", false
	}
	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	return text, true
}
