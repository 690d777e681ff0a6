/*
Package domain contains the core types of cohort.

It is kept pure and free of I/O: persistence and randomness reach the core through
the ports package, following Hexagonal Architecture principles.

# Key Entities

  - Variant: One arm of an experiment, with a relative weight and an Action.
  - Assignment: The persisted segmentation decision (a variant id or a sentinel).
  - State: Where a user stands in an experiment's lifecycle.
  - Handler / LifecycleHooks: User event subscriptions and observability callbacks.
*/
package domain
