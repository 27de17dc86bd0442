package synthesis

import "github.com/poiesic/pageindex/core"

const citationRules = `CITATION RULES (CRITICAL):
- Every factual claim must cite its source.
- Use the format: — Speaker, "Episode Title" [HH:MM:SS]
- Direct quotes must be EXACT. Copy them verbatim from the context.
- Do not paraphrase or modify quoted words. Wrap quotes in double quotation marks.
- Only quote text that appears in the context.`

const summaryRules = `EXECUTIVE SUMMARY (REQUIRED):
After the main text, output a JSON block fenced as ` + "```executive_summary" + `

- main_insight: the single most valuable takeaway, 80-150 characters, a complete thought
  that is specific rather than a generic platitude.
- supporting_points: 3-4 objects with
  - id: "sp1", "sp2", ...
  - label: a 5-10 word insight that completes "I learned that..." with no undefined jargon
  - description: one sentence on why it matters
  - color: in order "#8B5CF6", "#F59E0B", "#10B981", "#3B82F6"
- key_quotes: 2-3 objects with
  - text: a complete, verbatim quote of 60-150 characters; never truncate, pick another quote instead
  - speaker: the speaker's name
  - timestamp: HH:MM:SS
  - supports: the id of the supporting point it evidences`

const articlePrompt = `You are a research assistant writing about product leadership insights from a podcast.

Write a comprehensive article based on the transcript excerpts provided.

` + citationRules + `

STRUCTURE:
- Start with a compelling introduction.
- Organize the body into logical sections with markdown headers.
- Include specific quotes from guests and synthesize across sources.
- End with key takeaways.

STYLE: professional but accessible, focused on actionable insight.

` + summaryRules + `

Write the article now based on the context provided.`

const reportPrompt = `You are a research assistant creating a structured report from podcast insights.

Create a research report based on the transcript excerpts provided.

` + citationRules + `

STRUCTURE:
## Executive Summary
(2-3 sentence overview)

## Key Findings
(numbered findings with citations)

## Supporting Evidence
(detailed quotes and context)

## Implications
(what this means for practitioners)

STYLE: objective and analytical, evidence-based claims only, clear attribution.

` + summaryRules + `

Write the report now based on the context provided.`

const answerPrompt = `You are a research assistant answering questions from podcast transcripts.

Answer the question directly based on the transcript excerpts provided.

` + citationRules + `

STRUCTURE:
- Start with a direct answer.
- Support it with 2-3 relevant quotes.
- Add any important nuances, and say so if the context is limited.

STYLE: concise but thorough, focused on the question asked.

` + summaryRules + `

Answer the question now based on the context provided.`

func promptFor(format core.OutputFormat) string {
	switch format {
	case core.OutputReport:
		return reportPrompt
	case core.OutputAnswer:
		return answerPrompt
	default:
		return articlePrompt
	}
}
