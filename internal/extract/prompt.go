package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultInstructions is the instruction block written to the extraction tool
// ahead of every file reference. It specifies the output contract and the
// extraction rules; the tool sees the same block for every document.
// Read-only after initialization.
const DefaultInstructions = `Read the document referenced on the line after the delimiter and extract its contents into structured data.

Output contract:
- Your ONLY output must be a single valid JSON object. No markdown, no code fences, no XML tags, no prose, no explanations. Output raw JSON only.
- Produce exactly this shape:
  {
    "title": string,
    "doc_type": string,
    "date": string or null,
    "parties": [string],
    "identifiers": {string: string},
    "amounts": [{"label": string, "value": number, "currency": string or null}],
    "summary": string,
    "key_points": [string],
    "language": string
  }

Field rules:
- title: the document's own title, or a faithful short description when untitled.
- doc_type: a lowercase category such as "invoice", "report", "contract", "letter", "statement".
- date: the primary document date in ISO 8601 (YYYY-MM-DD), null when none is printed.
- parties: every organization and person the document names as a participant.
- identifiers: reference numbers keyed by kind, e.g. {"invoice_no": "2024-0113"}.
- amounts: each monetary figure with its printed label; value uses "." as the decimal separator with no thousands grouping; currency is the ISO 4217 code or null.
- summary: two or three sentences covering the document's purpose and outcome.
- key_points: the main findings, obligations or decisions, one short string each.
- language: the ISO 639-1 code of the document's language.

Extraction rules:
- Transcribe values exactly as printed; never invent data the document does not contain.
- Use null for a value that cannot be determined; never guess.
- Keep summary and key_points in the document's own language.
- If the document is unreadable or empty, still emit the JSON object with every field null or empty and doc_type "unknown".`

// PayloadDelimiter separates the instruction block from the file reference
// in the stdin payload.
const PayloadDelimiter = "---"

// BuildPayload assembles the stdin payload for one document: the instruction
// block, a delimiter line, and a one-line reference to the file to process.
func BuildPayload(instructions, doc string) string {
	return instructions + "\n" + PayloadDelimiter + "\n" + "Document: " + doc + "\n"
}

// LoadPromptFile reads a markdown prompt file that replaces the built-in
// instruction block. The whole file becomes the instructions; when the file
// carries a fenced json code block, the fence contents are returned as the
// diagnostic schema source.
func LoadPromptFile(path string) (instructions, schema string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read prompt file: %w", err)
	}

	instructions = strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(instructions) == "" {
		return "", "", fmt.Errorf("prompt file %s is empty", path)
	}

	schema, err = extractJSONFence(data)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse prompt file %s: %w", path, err)
	}

	return instructions, schema, nil
}

// extractJSONFence returns the contents of the first fenced json code block
// in the markdown source, or "" when there is none.
func extractJSONFence(source []byte) (string, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var fence string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if string(fcb.Language(source)) != "json" {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			sb.Write(segment.Value(source))
		}
		fence = sb.String()
		return ast.WalkStop, nil
	})
	if err != nil {
		return "", err
	}

	return fence, nil
}
