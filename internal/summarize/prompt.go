package summarize

import (
	"regexp"
	"strings"
)

const systemPrompt = `You are a voice-first assistant whose answers are read aloud.
Reply in this format:

Summary: <the answer>

Related Questions:
1. <question>
2. <question>
3. <question>`

const answerGuidance = "This app is for visually impaired users, so provide direct, factual, and concise answers " +
	"without summarizing the question back. For date or time questions, give the actual date/time information. " +
	"Include 3 relevant follow-up questions that are very brief."

// BuildPrompt returns the user prompt for content.
func BuildPrompt(content string, typ InputType) string {
	if typ == InputURL {
		return "Please summarize the content from this URL: " + content + ". " + answerGuidance
	}
	return "Please answer this question directly: " + content + ". " + answerGuidance
}

var (
	summaryRe   = regexp.MustCompile(`(?is)Summary:(.*?)(?:Related Questions:|$)`)
	relatedRe   = regexp.MustCompile(`(?is)Related Questions:(.*)`)
	numberedRe  = regexp.MustCompile(`\d+\.\s+`)
	bulletRe    = regexp.MustCompile(`^[•\-*]\s+`)
	questionsRe = regexp.MustCompile(`\b[^.!?]+\?`)
)

// ExtractSummary returns the Summary section of a reply, the text before
// "Related Questions:", or the whole reply.
func ExtractSummary(reply string) string {
	if m := summaryRe.FindStringSubmatch(reply); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	if i := strings.Index(reply, "Related Questions:"); i > -1 {
		return strings.TrimSpace(reply[:i])
	}
	return reply
}

// ExtractRelatedQuestions returns at most one follow-up question: the first
// item of the Related Questions section, or failing that the first
// question-shaped sentence of the reply.
func ExtractRelatedQuestions(reply string) []string {
	if m := relatedRe.FindStringSubmatch(reply); m != nil && strings.TrimSpace(m[1]) != "" {
		section := strings.TrimSpace(m[1])
		for _, q := range numberedRe.Split(section, -1) {
			if q = strings.TrimSpace(q); q != "" {
				return []string{q}
			}
		}
		for _, line := range strings.Split(section, "\n") {
			line = bulletRe.ReplaceAllString(strings.TrimSpace(line), "")
			if line != "" && strings.HasSuffix(line, "?") {
				return []string{line}
			}
		}
	}

	for _, q := range questionsRe.FindAllString(reply, -1) {
		q = strings.TrimSpace(q)
		if len(q) > 10 && len(q) < 100 {
			return []string{q}
		}
	}
	return nil
}
