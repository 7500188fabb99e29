package domain

// KeyPrefix namespaces every key this service writes to the store.
// Mutable so tests and multi-tenant deployments can rebase it; set once
// from config at startup, before any repository is constructed.
var KeyPrefix = "qurandex:"
