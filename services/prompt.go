package services

import (
	"strings"
	"text/template"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
)

const noAbstract = "No abstract available."

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`[INST] You are a specialized Neurology Research Assistant. Your task is to summarize the following research paper abstract for a clinician.

Global Constraints:
1. Do NOT use markdown formatting (no bolding like **text**, no italics).
2. Do NOT use filler phrases like "Not explicitly detailed in the abstract", "Inferred from context", or "Key findings implied".
3. If a section is missing from the abstract, write "Not available." or omit the section content.
4. Be concise and professional.

Please extract/generate the following sections:
- Objective: (What was the goal? Max 1 sentence)
- Methods: (How was it done? Study design, N=? Max 2 sentences)
- Results: (What were the key findings? P-values, Hazard Ratios if avail. Max 3 sentences)
- Conclusion: (What do these results mean? Max 1 sentence)
- Clinical Relevance: (Why does this matter for a neurologist? Max 1 sentence)
- Key Points: (Provide 3 concise bullet points as a JSON list)

Return the output in the following format:
Objective: ...
Methods: ...
Results: ...
Conclusion: ...
Clinical Relevance: ...
Key Points: ...

Title: {{.Title}}
Journal: {{.Source}}

Abstract:
{{.Abstract}}
[/INST]`))

type promptData struct {
	Title    string
	Source   string
	Abstract string
}

// BuildSummaryPrompt erzeugt den Prompt für ein Paper. Gleiche Eingabe ergibt denselben Prompt.
func BuildSummaryPrompt(p *models.Paper) string {
	data := promptData{Title: p.Title, Source: p.Source, Abstract: noAbstract}
	if p.HasAbstract() {
		data.Abstract = *p.Abstract
	}
	var sb strings.Builder
	// Die Vorlage ist statisch, Execute schlägt nur bei Schreibfehlern fehl.
	_ = summaryPromptTmpl.Execute(&sb, data)
	return sb.String()
}
