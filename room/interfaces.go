package room

// Listener receives every snapshot the registry publishes.
// It is declared here so source and services can observe the registry without an import cycle.
// A listener must not mutate the registry it is subscribed to.
type Listener func(snapshot Snapshot)
