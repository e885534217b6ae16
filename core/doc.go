// Package core contains the canonical access-grant domain contracts,
// entities, and workflow orchestration. Adapters (stores, command buses,
// transports) must depend on this package; core must not depend on
// transport-specific or store-specific adapters.
package core
