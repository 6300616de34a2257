// Package webfetch provides a tool that fetches web pages over HTTP(S) and
// converts their HTML into Markdown for consumption by language models.
//
// The main entry point is [New], which returns a ready-to-register
// [tool.Tool]; the fetch logic is also available directly through [Fetch].
// URL normalization, redirect following, response-size limiting, and
// context-aware cancellation are handled automatically.
package webfetch
