// Package agent binds the workflow executor, feature gate, state store and
// conversational memory into runnable planning agents.
//
// Each agent type is a closed, registered pairing of a typed conversation
// state variant and an immutable workflow definition. Definitions are built
// once at process start with their model client injected; the Factory then
// hands out lightweight Agent handles that couple a definition to the
// loaded-or-created state of one conversation.
//
// The per-type workflow files (coordinator.go, financial.go, ...) are
// deliberately parallel in structure: same phases pattern, same reply
// composition, different payloads and routing.
package agent
