package navigator

const speakerPrompt = `Extract any named speaker or guest from a podcast research query.

Identify whether the query mentions a specific person by name whose views are being requested.

Output ONLY valid JSON with this shape, with no preamble or trailing text:
{
  "named_speaker": "Speaker name if explicitly mentioned, or null",
  "is_speaker_specific": true or false
}

Examples:
- "What does Sean Ellis say about PMF?" -> {"named_speaker": "Sean Ellis", "is_speaker_specific": true}
- "What is product-market fit?" -> {"named_speaker": null, "is_speaker_specific": false}
- "Tell me about Rahul's thoughts on growth" -> {"named_speaker": "Rahul", "is_speaker_specific": true}
- "How do top PMs approach roadmapping?" -> {"named_speaker": null, "is_speaker_specific": false}

Only set is_speaker_specific to true if a specific person's name is mentioned.`

const themePrompt = `You are navigating a research index of podcast conversations to answer a user query.

Select 1-3 themes most likely to contain relevant information.

Rules:
1. ONLY select theme ids from the AVAILABLE THEMES list.
2. Do NOT invent, guess, or abbreviate ids. Copy them exactly as shown.
3. If no theme is relevant at all, return an empty list.

Output ONLY valid JSON with this shape, with no preamble or trailing text:
{
  "selected_themes": ["theme-id-1", "theme-id-2"],
  "reasoning": "Brief explanation of why these themes are relevant"
}`

const episodePrompt = `You are selecting podcast episodes to answer a user query.

Select 2-5 episodes most likely to contain valuable insights.

Consider:
1. Guest match: if a named speaker is given, their episodes come first.
2. Guest expertise: who would know most about this topic?
3. Episode summary: does it mention relevant concepts?
4. Diversity: without a named speaker, include perspectives from different guests.

Rules:
1. ONLY select episode ids from the EPISODES list. Copy them exactly.
2. If no episode is relevant at all, return an empty list.

Output ONLY valid JSON with this shape, with no preamble or trailing text:
{
  "selected_episodes": ["episode-id-1", "episode-id-2"],
  "reasoning": "Brief explanation of why these episodes are most relevant"
}`

const topicPrompt = `You are selecting discussion topics from podcast episodes to answer a user query.

Select 3-8 topics most likely to contain specific, actionable information rather
than general mentions.

Rules:
1. ONLY select topic ids from the TOPICS list. Copy them exactly.
2. If no topic is relevant at all, return an empty list.

Output ONLY valid JSON with this shape, with no preamble or trailing text:
{
  "selected_topics": ["topic-id-1", "topic-id-2"],
  "reasoning": "Brief explanation of why these topics are most relevant"
}`

const sufficiencyPrompt = `You are assessing whether enough information has been retrieved to answer a user query.

Assess:
1. Can the query be answered with the quotes provided?
2. What aspects of the query, if any, remain unanswered?
3. Would exploring additional themes help?

Rules:
1. ONLY suggest theme ids from the SUGGESTABLE THEMES list. Copy them exactly.
2. Only suggest themes when there is a clear gap in the retrieved information.

Output ONLY valid JSON with this shape, with no preamble or trailing text:
{
  "sufficient": true or false,
  "confidence": 0.0 to 1.0,
  "answered_aspects": ["What parts of the query can be answered"],
  "missing_aspects": ["What parts still need information"],
  "suggested_themes": ["theme-id-1"]
}

Be conservative: if the quotes give good coverage with multiple perspectives, mark them as sufficient.`
