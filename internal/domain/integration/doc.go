// Package integration contains the Integration bounded context.
// This context manages connections to the external systems a retailer
// organization depends on: the ERP (Microsoft Dynamics OData) and the
// POS (Vend).
//
// Key concepts:
//   - Credential: per-tenant, per-provider OAuth token set and endpoint config
//   - ERPGateway / POSGateway: port interfaces for the external systems
//   - PushStatus: progress counter for long-running batch pushes
//   - BatchOutcome: partial-failure result of a batch push
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
