// Package model defines the provider-agnostic abstractions for interacting
// with language and vision models.
//
// Providers (Gemini, OpenAI, Anthropic) implement the Model interface from
// this package so agents, flows and the invoice extractor stay decoupled from
// vendor SDKs. MockModel supports scripted turns for tests.
package model
