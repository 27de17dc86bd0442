package planner

const planPrompt = `You are a research assistant analyzing questions about a podcast on product leadership, growth and startups.

Analyze the research query and create a retrieval plan.

Respond with a JSON object with exactly these fields:
- "sub_questions": 1 to 4 specific questions that together answer the query (array of strings)
- "guest": the podcast guest the query is explicitly about, or null if none is named
- "output_type": one of "article", "report" or "qa_response"

Choose output_type as follows:
- "article": open-ended questions wanting a comprehensive narrative
- "report": analytical questions wanting structured findings
- "qa_response": specific factual questions

Example:
{
  "sub_questions": [
    "What metrics indicate product-market fit?",
    "How do founders know when they have product-market fit?"
  ],
  "guest": null,
  "output_type": "article"
}`

const strictSuffix = `

Your previous answer could not be parsed. Respond with ONLY the JSON object.
No prose, no markdown fences, no comments. "sub_questions" must be a non-empty
array of at most 4 non-empty strings.`
