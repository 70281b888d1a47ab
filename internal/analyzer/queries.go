package analyzer

// Capture names used by the import queries.
const (
	captureImport  = "import"
	captureExport  = "export"
	captureCallee  = "callee"
	captureCall    = "call"
	captureDynamic = "dynamic"
)

// importQuery matches every module specifier written as a string literal.
// The same source compiles against the javascript, typescript and tsx
// grammars.
const importQuery = `
	(import_statement source: (string (string_fragment) @import))
	(export_statement source: (string (string_fragment) @export))
	(call_expression
		function: (identifier) @callee
		arguments: (arguments . (string (string_fragment) @call)))
	(call_expression
		function: (import)
		arguments: (arguments . (string (string_fragment) @dynamic)))
`

// nodeBuiltins are the core modules of Node.js.
var nodeBuiltins = map[string]bool{
	"assert": true, "async_hooks": true, "buffer": true, "child_process": true,
	"cluster": true, "console": true, "constants": true, "crypto": true,
	"dgram": true, "diagnostics_channel": true, "dns": true, "domain": true,
	"events": true, "fs": true, "http": true, "http2": true, "https": true,
	"inspector": true, "module": true, "net": true, "os": true, "path": true,
	"perf_hooks": true, "process": true, "punycode": true, "querystring": true,
	"readline": true, "repl": true, "stream": true, "string_decoder": true,
	"sys": true, "timers": true, "tls": true, "trace_events": true, "tty": true,
	"url": true, "util": true, "v8": true, "vm": true, "wasi": true,
	"worker_threads": true, "zlib": true,
}
