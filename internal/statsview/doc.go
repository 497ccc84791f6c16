// Package statsview serves runtime statistics over HTTP. The server is only
// built in when the statsview build tag is given:
//
//	go build -tags statsview ./cmd/deckboy
//
// With the default address the graphs are at
//
//	localhost:12700/debug/statsview
//
// and the standard pprof pages at
//
//	localhost:12700/debug/pprof/
package statsview
