// Package llm runs the producer's agents against an OpenRouter (or any
// OpenAI-compatible) chat endpoint.
//
// # Agents
//
// Every completion runs as a named agent (researcher, script writer,
// reviewer, SEO writer, ...). Agents come from an embedded agents.yaml and
// can be overridden per deployment with llm.agents_file. An agent may pin
// its own model and temperature. JSON agents request a JSON response format
// and have code fences and surrounding prose stripped from the reply.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: run a prompt through a named agent.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: tolerant decoding of model JSON output.
// DecodeSEO: parse the SEO writer's reply.
//
// # Retry Behaviour
//
// Empty replies, HTTP 408/429/5xx and network timeouts are retried with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default). A
// Retry-After header replaces the computed delay. Context cancellation
// aborts retries immediately.
package llm
