package answer

import (
	"fmt"
	"strings"
)

// maxPromptFAQs caps how many FAQ entries go into the system prompt.
const maxPromptFAQs = 12

const supportedLanguages = "English, Spanish, German, French, Portuguese, Russian, Arabic, Farsi, " +
	"Turkish, Italian, Dutch, Polish, Ukrainian, Japanese, Chinese, Hindi, " +
	"Danish, Swedish, Norwegian, Kurdish and many more."

// systemPrompt renders the FAQ-grounded instructions for the assistant.
func systemPrompt(g Grounding) string {
	var faqText strings.Builder
	faqs := g.FAQs
	if len(faqs) > maxPromptFAQs {
		faqs = faqs[:maxPromptFAQs]
	}
	for _, faq := range faqs {
		fmt.Fprintf(&faqText, "Q: %s\nA: %s\n\n", faq.Question, faq.Answer)
	}

	faqSection := faqText.String()
	if faqSection == "" {
		faqSection = "No FAQ was provided yet."
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are an AI support assistant for a website called %q.

- Answer ONLY based on the FAQ and info below plus the user's question.
- If you are not sure, DO NOT invent answers. Instead, ask the visitor for name and email
  so a human can follow up.
- Be short, clear and friendly.
- You support all languages. If the user writes in another language, answer in that language.

Supported languages include: %s

Here are some FAQ entries for context:
%s`, g.Business.Name, supportedLanguages, faqSection))
}
