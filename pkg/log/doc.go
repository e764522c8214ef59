/*
Package log provides structured logging for pza-runtime using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
context-specific child loggers, configurable levels, and helper functions
for common logging patterns. All logs include timestamps and support
filtering by severity level for production debugging.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Context Loggers                     │          │
	│  │  - WithComponent("factory")                 │          │
	│  │  - WithInstance("thermo-1")                 │          │
	│  │  - WithTopic("pza/thermo-1/temperature")     │          │
	│  │  - WithAttribute("pza/thermo-1/temperature") │          │
	│  │  - WithTaskID("thermo-oscillator")           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  {"level":"info","instance":"thermo-1",      │          │
	│  │   "time":"2026-01-01T10:30:00Z",             │          │
	│  │   "message":"mount complete"}                │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

Initializing the logger, typically once from cmd/pza-demo's
cobra.OnInitialize hook:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Context loggers, used throughout pkg/container, pkg/instance and
pkg/attribute to scope every message to the topic or instance it concerns:

	instLog := log.WithInstance("thermo-1")
	instLog.Info().Msg("instance produced")

	attrLog := log.WithAttribute("pza/thermo-1/temperature")
	attrLog.Warn().Msg("command dropped: server disabled")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance, initialized once at startup
  - Accessible from all packages without passing one down explicitly

Context Logger Pattern:
  - Create child loggers scoped to an instance, topic or task
  - Pass the child logger down, not the global one, once inside a scope

# Security

Never log command/attribute payloads verbatim if a driver settings blob
may carry credentials (e.g. a network instrument's API key); log the
topic and kind, not the raw bytes.
*/
package log
