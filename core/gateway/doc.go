// Package gateway aggregates independent AI-generation backends behind one
// canonical request/response contract.
//
// Every backend call runs through a per-backend resilience chain (retry,
// circuit breaker, rate limiter, timeout, logging; see the middleware
// subpackage). Output is delivered incrementally whenever the adapter
// supports it, and synthetically chunked otherwise. Usage analytics and
// optional evaluation resolve independently of content delivery.
//
// Construct a Gateway with [New] and functional options:
//
//	gw, err := gateway.New(
//	    gateway.WithBackend("openai", adapter),
//	    gateway.WithFieldMap("openai", analytics.OpenAIFieldMap),
//	    gateway.WithTools(calculator.New()),
//	)
//
// [Gateway.Generate] returns a complete [Result]; [Gateway.Stream] returns
// a [Generation] handle carrying the chunk sequence plus two deferred
// values, [Generation.Usage] and [Generation.Evaluation], each awaitable on
// its own.
package gateway
