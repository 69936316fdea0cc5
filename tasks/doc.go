// Package tasks manages a Google Tasks to-do list for the to-do agent.
//
// Manager wraps the Tasks v1 API and numbers pending tasks 1..n in the order
// of the last listing so users (and the model) can refer to them by number.
// Every Manager method returns user-facing text; API failures are rendered
// into that text instead of being returned as errors.
//
// Authentication uses the installed-app OAuth flow: client secrets come from
// credentials.json and the resulting token is cached in token.json.
package tasks
