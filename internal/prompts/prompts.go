// Package prompts holds the prompt templates for every model interaction.
// The JSON field names in the templates are part of the contract with
// internal/llmjson callers; change them together.
package prompts

import "fmt"

// Required response fields per structured call.
var (
	SimilarityFields   = []string{"llm_similarity_score", "llm_similarity_justification"}
	ThreadUpdateFields = []string{"llm_title", "llm_summary", "status"}
)

const summarizeTemplate = `You are a professional news writer. Your task is to summarize the following news article.

News Title:
%s

News Description:
%s

News Content:
%s

Please provide a concise summary that includes the key points and entities from the news. The summary should be informative and capture the essence of the article.`

const similarityTemplate = `You are a news expert. Your task is to analyze the similarity between a news article and an existing news thread.

News Article:
Title: %s
Description: %s
Content: %s

Existing Thread:
Title: %s
Summary: %s

Please analyze the similarities and differences between the news article and the existing thread. Consider factors such as:
- Topic relevance
- Key entities mentioned
- Geographic locations
- Time relevance
- Event connections

Provide your analysis and assign a similarity score between 0 and 100 (inclusive), where:
- 0 means not relevant at all
- 100 means exactly matching or highly related

Your response must be a valid JSON object with the following structure:
{
    "llm_similarity_justification": "Your detailed reasoning for the similarity score",
    "llm_similarity_score": <integer between 0 and 100>
}`

const threadUpdateTemplate = `You are a professional news writer. Your task is to update an existing news thread based on a new article being added to it.

New News Article:
Title: %s
Description: %s
Content: %s

Current Thread:
Title: %s
Summary: %s

Please provide:
1. An updated thread title that reflects the evolving story
2. An updated thread summary incorporating the new information
3. Determine if this news likely concludes or resolves the thread

For the status determination:
- Use "likely resolved" if the news represents a conclusion (e.g., final court verdict, competition outcome, resolution of conflict)
- Use "evolving" if the story is still developing

Your response must be a valid JSON object with the following structure:
{
    "llm_title": "Updated thread title",
    "llm_summary": "Updated comprehensive summary incorporating the new article",
    "status": "evolving" or "likely resolved"
}`

// Summarize renders the article-summary prompt.
func Summarize(title, description, content string) string {
	return fmt.Sprintf(summarizeTemplate, title, description, content)
}

// Similarity renders the article-vs-thread adjudication prompt.
func Similarity(articleTitle, articleDescription, articleContent, threadTitle, threadSummary string) string {
	return fmt.Sprintf(similarityTemplate, articleTitle, articleDescription, articleContent, threadTitle, threadSummary)
}

// ThreadUpdate renders the thread title/summary/status regeneration prompt.
func ThreadUpdate(articleTitle, articleDescription, articleContent, threadTitle, threadSummary string) string {
	return fmt.Sprintf(threadUpdateTemplate, articleTitle, articleDescription, articleContent, threadTitle, threadSummary)
}
