package llm

import (
	"fmt"
	"strings"
)

// systemMessage constrains the model to the supplied context. The refusal
// phrase must match RefusalAnswer exactly so clients can detect it.
const systemMessage = `You are an AI assistant that provides accurate answers based on the given context.
Your task is to analyze the provided documents and generate a comprehensive answer.
Rules:
1. Only use information present in the provided documents
2. If the documents contain relevant information, synthesize it into a clear answer
3. If the documents discuss related topics but don't directly answer the question, explain what relevant information is available
4. Be specific and cite information from the documents
5. If the documents are completely unrelated to the question, say "` + RefusalAnswer + `"`

// buildUserPrompt lays each document out under a numbered heading with
// its similarity score, followed by the question and answering rules.
func buildUserPrompt(query string, docs []ContextDocument) string {
	var b strings.Builder

	b.WriteString("Please analyze these documents and answer the question.\n\n")
	b.WriteString("Context Documents:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "Document %d:\nTitle: %s\nContent: %s\nRelevance: This document has a similarity score of %.4f\n---\n",
			i+1, doc.Title, doc.Content, doc.Similarity)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n\n", query)
	b.WriteString(`Instructions:
1. Use only information from the provided documents
2. If the documents contain relevant information, provide a detailed answer
3. If the information is partially relevant, explain what information is available
4. Cite specific details from the documents when possible
5. If the documents don't contain relevant information, say "` + RefusalAnswer + `"

Answer:`)

	return b.String()
}
