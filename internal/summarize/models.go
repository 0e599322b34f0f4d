package summarize

import "strings"

// DefaultModelID is the model used when none is selected.
const DefaultModelID = "claude"

// Model is an entry of the model catalogue.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Models is the catalogue of selectable models.
var Models = []Model{
	{ID: "claude", Name: "Claude", Description: "Anthropic's Claude model for accurate and nuanced summarization"},
	{ID: "perplexity", Name: "Perplexity", Description: "Perplexity AI model with strong knowledge capabilities"},
	{ID: "chatgpt", Name: "ChatGPT", Description: "OpenAI's GPT model for versatile text generation"},
	{ID: "llama", Name: "Llama", Description: "Meta's open source LLM for efficient summarization"},
	{ID: "gemini", Name: "Gemini", Description: "Google's multimodal AI model with advanced capabilities"},
	{ID: "mistral", Name: "Mistral", Description: "Mistral AI's efficient model for accurate text processing"},
}

// LookupModel finds a model by id or display name, ignoring case and
// surrounding space. Spoken names like "chat gpt" match too.
func LookupModel(name string) (Model, bool) {
	key := normalizeModelName(name)
	if key == "" {
		return Model{}, false
	}
	for _, m := range Models {
		if key == m.ID || key == normalizeModelName(m.Name) {
			return m, true
		}
	}
	return Model{}, false
}

// ModelName returns the display name for id.
func ModelName(id string) string {
	for _, m := range Models {
		if m.ID == id {
			return m.Name
		}
	}
	return "Unknown Model"
}

func normalizeModelName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "")
}
