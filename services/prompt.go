package services

import (
	"fmt"

	"github.com/tmc/langchaingo/prompts"
)

// answerTemplate instructs the completion model to treat the retrieved
// context as authoritative: never invent answers that are not in it,
// surface whatever relevant findings it does contain, and ask the engineer
// for the missing inputs when the context is insufficient.
const answerTemplate = `The person asking the question is a Fire Safety Engineer. Collect the info needed from the Engineer to answer the following question:
Context: {{.context}}
Question: {{.question}}
If the answer is not in the context, DO NOT MAKE UP AN ANSWER.
However, in this case, if there are any relevant answers you can find, please state these.
You can ask the Engineer for more information and point them in the right direction of particular calculations and the information missing for you to perform them.
`

// PromptComposer fills the static answer template with retrieved context
// and the user's question. It holds no state beyond the parsed template.
type PromptComposer struct {
	template prompts.PromptTemplate
}

// NewPromptComposer parses the built-in template.
func NewPromptComposer() *PromptComposer {
	return &PromptComposer{
		template: prompts.NewPromptTemplate(answerTemplate, []string{"context", "question"}),
	}
}

// Compose renders the prompt. Malformed inputs degrade answer quality, not
// correctness, so there is no input validation here.
func (p *PromptComposer) Compose(context, question string) (string, error) {
	prompt, err := p.template.Format(map[string]any{
		"context":  context,
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}
	return prompt, nil
}
