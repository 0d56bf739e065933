// Package core defines the shared contracts of the planmesh orchestration
// core: the conversation state header threaded through every workflow, the
// persistence interfaces for durable state and conversational memory, the
// subscription view consumed by the feature gate, and the typed error
// taxonomy surfaced at component boundaries.
//
// Concrete implementations live in sibling packages (statestore, memory,
// gate, agent); core itself carries no behavior beyond what the shared types
// need to enforce their own invariants.
package core
