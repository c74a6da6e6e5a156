// Package state provides the per-chat session storage used by dialogue flows.
// It is domain-agnostic: callers choose the session value type.
package state
