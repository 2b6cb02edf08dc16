package constant

// DefaultConversationTitle is the sentinel carried by a conversation until a
// title is generated from its opening exchange.
const DefaultConversationTitle = "New conversation"

// UnknownConversationTitle is returned by title lookups for ids the cache and
// store know nothing about.
const UnknownConversationTitle = "Unknown conversation"

// SystemPromptNormal drives answers from general knowledge.
const SystemPromptNormal = `You are a friendly, helpful assistant. Answer the user's questions clearly, kindly and thoroughly.`

// SystemPromptRetrieval drives answers grounded in retrieved reference
// material only.
const SystemPromptRetrieval = `You are an internal support assistant for company documentation.

Rules:
1. Use only the information contained in the reference material.
2. When the material names a specific code, rule or procedure, cite it explicitly.
3. Answer clearly and politely.

When reference material is provided, base the answer on it.`

// SystemPromptTitle asks the model for a short conversation title.
const SystemPromptTitle = `Summarize the conversation below into a short title of at most 15 characters.

Rules:
- At most 15 characters.
- Capture the main topic.
- Drop filler words such as "about".
- Output the title only, no explanation.`
