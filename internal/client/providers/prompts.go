package providers

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/recordkeeper/internal/client/models"
)

const extractionShape = `Return a json code block with an array of objects, one per document found. Each object has:
"type", "subtype", "title", "summary", "language", "tags" (array of strings), "test_date" or "admission_date" (YYYY-MM-DD) when present.
If the input is not a readable document, return [{"error": "<reason>"}] instead.`

// ParseAllPrompt asks for metadata and markdown in one answer.
func ParseAllPrompt(rec *models.Record) string {
	var sb strings.Builder
	sb.WriteString("Transcribe the attached pages to markdown and describe the document.\n")
	sb.WriteString(extractionShape)
	sb.WriteString("\nThen return a markdown code block with the full transcribed text.")
	if rec.Transcription != "" {
		sb.WriteString("\nUse this transcription as the primary source:\n")
		sb.WriteString(rec.Transcription)
	}
	return sb.String()
}

// ParsePagePrompt asks for the markdown of a single page.
func ParsePagePrompt(page, pages int) string {
	return fmt.Sprintf("Transcribe page %d of %d to markdown. Return only the page text, keep tables as markdown tables.", page, pages)
}

// MetadataPrompt asks for the json block describing text.
func MetadataPrompt(text string) string {
	return "Describe the following document.\n" + extractionShape + "\n\nDocument:\n" + text
}

// TranslatePagePrompt asks for a single page translated to language.
func TranslatePagePrompt(language string, page int, content string) string {
	return fmt.Sprintf("Translate page %d of this document to %s. Keep the markdown structure, return only the translated text.\n\n%s", page, language, content)
}
