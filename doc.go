// Package lectern is a retrieval-augmented assistant for course materials.
//
// It answers questions about ingested courses by driving a bounded
// tool-calling loop against an LLM provider: the model may request course
// searches or outline lookups, the results are fed back, and the final
// text is synthesized into a plain answer with the sources consulted.
//
// # Quick Start
//
//	provider := anthropic.New(apiKey, model)
//	embedding, err := gemini.NewEmbedding(ctx, apiKey)
//	store := sqlite.New("lectern.db")
//
//	orch := lectern.NewOrchestrator(provider)
//	assistant := lectern.NewAssistant(orch, store)
//	assistant.AddTool(coursesearch.New(store, embedding))
//	assistant.AddTool(outline.New(store, embedding))
//
//	answer := assistant.Ask(ctx, "What is covered in lesson 3 of the MCP course?", "")
//
// # Core Interfaces
//
// The root package defines the contracts that all components implement:
//
//   - [ModelProvider]: LLM backend (completion with tool calling)
//   - [EmbeddingProvider]: text-to-vector embedding
//   - [CourseStore]: course and chunk persistence with vector search
//   - [Tool]: pluggable capability for LLM function calling
//   - [Tracer]: optional span creation for observability
//
// # Included Implementations
//
// Providers: provider/anthropic (completions), provider/gemini (embeddings).
// Storage: store/sqlite (in-process brute-force search), store/postgres
// (pgvector). Tools: tools/coursesearch, tools/outline.
//
// The ingest package turns course scripts, markdown, HTML, and PDF files
// into stored chunks. internal/web serves the HTTP API and frontend, and
// the observer package wires OpenTelemetry around providers and tools.
package lectern
