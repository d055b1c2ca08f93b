package llm

import (
	"fmt"
	"strings"

	"dal/pkg/schema"
)

// EditorialPolicy is the set of communication principles every analysis
// checks against.
const EditorialPolicy = `CORE PRINCIPLES:

1. HONESTY:
- Never mislead the audience, even to hit a sales target
- Never promise what cannot be delivered ("100% employment", "guaranteed job")
- Tell the truth through facts, not declarations
- No "the very best", "unique on the market", "faster/cheaper/more effective"
- Do not use the word "effective" in marketing copy

2. CALM:
- No excess delight or admiration
- No piles of exclamation marks
- Do not rush the reader or press on emotions ("Hurry!", "Don't miss out!")
- Look at events optimistically

3. SUPPORT AND EMPATHY:
- Help students believe in themselves
- Do not decide for the student what they think or feel
- No discrimination
- Treat mistakes as normal

4. TO THE POINT:
- Remove filler and pompous vocabulary
- Be concise
- One paragraph, one idea

5. THE STUDENT'S LANGUAGE:
- No unexplained jargon
- Adapt wording to the target audience`

const analysisRules = `IMPORTANT:
- Do NOT duplicate suggestions. Every suggestion must be unique.
- If the same problem occurs several times, merge it into one suggestion.
- The text may contain Markdown. Keep all markup in "original" and "replacement" exactly as written (**bold**, *italic*, ` + "`code`" + `, ~~strikethrough~~, [links](url)).
- "original" must be copied verbatim from the text.
- Write reasons in the language of the text.

Return ONLY valid JSON with this exact structure:
{
  "overall_analysis": "short overall analysis (2-3 sentences) of style and tone",
  "suggestions": [
    {
      "id": "1",
      "original": "original fragment, with markup if any",
      "replacement": "suggested fragment, with markup",
      "reason": "short explanation",
      "type": "style" | "tone" | "grammar" | "policy"
    }
  ]
}`

var formalityGuide = map[schema.Formality]string{
	schema.FormalityInformal: "Use an informal, friendly style",
	schema.FormalityModerate: "Keep a moderately formal style",
	schema.FormalityFormal:   "Strictly keep a formal business style",
}

var empathyGuide = map[schema.Empathy]string{
	schema.EmpathyLow:    "Minimal emotional involvement, dry style",
	schema.EmpathyMedium: "Moderate empathy and reader support",
	schema.EmpathyHigh:   "High empathy, active support and engagement",
}

var strictnessGuide = map[schema.Strictness]string{
	schema.StrictnessLenient:  "Flag only obvious violations",
	schema.StrictnessModerate: "Standard level of checking",
	schema.StrictnessStrict:   "Check strictly, including minor deviations",
}

// BuildAnalysisSystemPrompt creates the analyzer system prompt with the
// optional custom instructions and tone-of-voice sections.
func BuildAnalysisSystemPrompt(customPrompt string, tone schema.ToneSettings) string {
	var sb strings.Builder

	sb.WriteString("You are a professional editor. Your job is to check texts against the editorial policy and communication principles.\n\n")
	sb.WriteString(EditorialPolicy)
	sb.WriteString("\n\n")
	sb.WriteString(analysisRules)

	if custom := strings.TrimSpace(customPrompt); custom != "" {
		sb.WriteString("\n\nADDITIONAL INSTRUCTIONS:\n")
		sb.WriteString(custom)
	}

	if !tone.IsZero() {
		sb.WriteString("\n\nTONE OF VOICE SETTINGS:")
		if g, ok := formalityGuide[tone.Formality]; ok {
			sb.WriteString(fmt.Sprintf("\n- Formality: %s", g))
		}
		if g, ok := empathyGuide[tone.Empathy]; ok {
			sb.WriteString(fmt.Sprintf("\n- Empathy: %s", g))
		}
		if g, ok := strictnessGuide[tone.Strictness]; ok {
			sb.WriteString(fmt.Sprintf("\n- Strictness: %s", g))
		}
	}

	return sb.String()
}

// BuildAnalysisUserPrompt wraps the text under review.
func BuildAnalysisUserPrompt(text string) string {
	return "Check this text against the editorial policy:\n\n" + text
}

// BuildRefinePrompt asks for a revised replacement of an existing suggestion.
func BuildRefinePrompt(req schema.RefineRequest) string {
	return fmt.Sprintf(`You are a professional editor. The user wants to adjust one of your edits.

Original text: %q
Your edit: %q
Your explanation: %q

User request: %q

Offer an improved edit that follows the user's request. Return ONLY valid JSON with this exact structure:
{
  "newReplacement": "improved edit",
  "explanation": "one sentence on how the request was taken into account"
}`, req.Original, req.Replacement, req.Reason, req.Instruction)
}

// SelectionSystemPrompt instructs the model to rewrite a selected fragment.
const SelectionSystemPrompt = "You are a professional editor. The user asks you to rewrite or change the selected fragment of text. Return only the rewritten text with no explanations. The result must be a single line without quotes."

// BuildSelectionUserPrompt pairs the selected fragment with the user's request.
func BuildSelectionUserPrompt(selected, instruction string) string {
	return fmt.Sprintf("Selected fragment: %q\n\nRequest: %s", selected, instruction)
}

// DefaultAltTextInstruction is sent with the image when the user gave none.
const DefaultAltTextInstruction = "Describe this image for alt text:"

// BuildAltTextSystemPrompt creates the vision system prompt. A non-empty
// caption is included as context.
func BuildAltTextSystemPrompt(caption string) string {
	var sb strings.Builder
	sb.WriteString(`You are an expert in writing alt text for images. Write a short but informative description for people with visual impairments.

Rules:
- Write in the language of the caption or request, if any
- Length: 1-2 sentences (ideally under 125 characters)
- Describe the main content of the image
- Do not start with "Image of..." or "Picture of..."
- For charts and diagrams, describe the data
- For photos of people, describe the action, not the appearance
- No quotes, no explanations, only the alt text`)
	if c := strings.TrimSpace(caption); c != "" {
		sb.WriteString(fmt.Sprintf("\n\nImage caption: %q", c))
	}
	return sb.String()
}

// BuildAltTextFallbackPrompt is used when the provider cannot see the image.
func BuildAltTextFallbackPrompt(imageURL, instruction, caption string) string {
	var sb strings.Builder
	if instruction != "" {
		sb.WriteString(fmt.Sprintf("User request: %s\n", instruction))
	}
	if caption != "" {
		sb.WriteString(fmt.Sprintf("Image caption: %s\n", caption))
	}
	sb.WriteString(fmt.Sprintf("Image URL: %s\n\n", imageURL))
	sb.WriteString(`Write a suitable short alt text. If you cannot analyze the image, guess from the file name in the URL or answer with a generic placeholder like "Image". Reply with the alt text only, without quotes.`)
	return sb.String()
}
