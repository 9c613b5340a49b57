// Package llm provides text-completion clients for the advisor. It supports
// Gemini, OpenAI and Anthropic behind one interface, with client-side rate
// limiting.
package llm
