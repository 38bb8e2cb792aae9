// Package model defines the provider-neutral language model contract used by
// the engine, plus a scripted in-memory implementation for tests. Concrete
// backends live in the openai and anthropic subpackages.
package model
