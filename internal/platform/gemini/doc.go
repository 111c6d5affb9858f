// Package gemini implements the generation.Generator interface on top of
// Google's Gemini API. It turns archived chat transcripts into rem drafts:
// the transcript is wrapped in a distillation prompt, sent to the model with
// a JSON response constraint, and the structured reply is mapped to domain
// Rem objects.
//
// The package is an infrastructure adapter: nothing outside it sees the
// Gemini client, the prompt template, or the wire schema. Transient API
// failures are retried with exponential backoff; safety blocks and malformed
// replies are surfaced as permanent generation errors.
package gemini
