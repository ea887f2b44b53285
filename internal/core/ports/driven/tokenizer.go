package driven

// Tokenizer counts and truncates text in model tokens. Chunk sizing and
// the retrieval context budget are both expressed in these tokens.
type Tokenizer interface {
	// Count returns the number of tokens in text
	Count(text string) int

	// Truncate cuts text down to at most maxTokens tokens
	Truncate(text string, maxTokens int) string
}
