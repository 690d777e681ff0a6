/*
Package ports defines the driven ports (interfaces) of cohort.

These interfaces decouple the experiment core from storage technology, allowing
the same segmentation logic to run over memory, files, Redis, BadgerDB or SQLite.

# Key Interfaces

  - KeyValueStore: Synchronous get/set/remove of string values.
  - KeyLister: Optional key enumeration, used by inspection tools.
  - DistributedLocker: Cross-process locking for stores shared between processes.
*/
package ports
