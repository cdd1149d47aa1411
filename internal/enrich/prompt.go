package enrich

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/aidanlsb/lang/internal/profile"
)

// Request is one enrichment call.
type Request struct {
	Profile   *profile.Profile
	Phrase    string
	InputLang string
	Level     string
	// Context is a sentence the learner saw the phrase in. When set the example
	// must reproduce it verbatim.
	Context string
	// GrammarNote is the learner's own note, expanded rather than replaced.
	GrammarNote string
}

type promptData struct {
	Language  string
	LevelType string
	Level     string
	Phrase    string
	InputLang string
}

// BuildPrompt renders the instruction sent to the model. The requested JSON
// keys are exactly the profile's logical field names.
func BuildPrompt(req Request) (string, error) {
	p := req.Profile
	f := p.Fields
	data := promptData{
		Language:  p.Name,
		LevelType: p.Levels.Type,
		Level:     req.Level,
		Phrase:    req.Phrase,
		InputLang: req.InputLang,
	}

	var b strings.Builder
	if tmpl := strings.TrimSpace(p.AI.PromptTemplate); tmpl != "" {
		t, err := template.New("prompt").Option("missingkey=error").Parse(tmpl)
		if err != nil {
			return "", fmt.Errorf("invalid prompt template for %s: %w", p.ID, err)
		}
		if err := t.Execute(&b, data); err != nil {
			return "", fmt.Errorf("failed to render prompt template for %s: %w", p.ID, err)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "You are a %s language teacher. A student at %s level %s has given you a word or phrase.\n",
			data.Language, data.LevelType, data.Level)
		fmt.Fprintf(&b, "- The phrase is: %q (input language: %s)\n", data.Phrase, data.InputLang)
	}

	b.WriteString("\nReturn a JSON object with exactly these fields:\n")
	fmt.Fprintf(&b, "- %q: The word or phrase in %s.\n", f.Primary, data.Language)
	if f.HasPhonetic() {
		fmt.Fprintf(&b, "- %q: Pronunciation or romanization.\n", f.Phonetic)
	}
	fmt.Fprintf(&b, "- %q: English translation.\n", f.Translation)

	if req.Context != "" {
		fmt.Fprintf(&b, "- The student saw it in this context: %q\n", req.Context)
		fmt.Fprintf(&b, "- %q: The context sentence copied verbatim. Do not correct grammar, expand contractions or replace slang.\n", f.Example)
		fmt.Fprintf(&b, "- %q: English translation of that sentence.\n", f.ExampleTranslation)
	} else {
		fmt.Fprintf(&b, "- %q: A simple example sentence in %s suitable for %s level %s.\n", f.Example, data.Language, data.LevelType, data.Level)
		fmt.Fprintf(&b, "- %q: English translation of the example.\n", f.ExampleTranslation)
	}

	if req.GrammarNote != "" {
		fmt.Fprintf(&b, "- The student added this grammar note: %q\n", req.GrammarNote)
		fmt.Fprintf(&b, "- %q: Expand on the student's grammar note.\n", f.Grammar)
	} else {
		fmt.Fprintf(&b, "- %q: Brief grammar notes, or an empty string if nothing is worth noting.\n", f.Grammar)
	}

	b.WriteString("\nReturn ONLY the JSON object.")
	return b.String(), nil
}
