package session

var suggestions = []string{
	"Tell me about artificial intelligence",
	"What's the weather like today?",
	"How does blockchain technology work?",
	"Write a short poem about nature",
	"Explain quantum computing in simple terms",
}

// Suggestions returns starter prompts for an empty conversation.
func Suggestions() []string {
	out := make([]string, len(suggestions))
	copy(out, suggestions)
	return out
}
