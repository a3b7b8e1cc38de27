package gateway

import "fmt"

const (
	summarizeInstruction = "Summarise the following document section in 2-3 sentences:\n\n"
	summarizeSystem      = "Summarise the user's document section in 2-3 sentences focusing on the key points."
	answerSystem         = "Answer the user's question using the provided context. If the context is insufficient, say so."
)

// AnswerPrompt builds the instruction sent for retrieval-augmented answers.
func AnswerPrompt(query, docContext string) string {
	return fmt.Sprintf(
		"You are an assistant that answers questions about the user's personal documents. "+
			"Using the context provided, answer the question concisely (2-3 sentences).\n\n"+
			"Context:\n%s\n\nQuestion: %s\nAnswer:",
		docContext, query,
	)
}
