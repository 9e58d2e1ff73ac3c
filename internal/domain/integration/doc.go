// Package integration contains the order synchronization bounded context.
// It describes storefront orders, the ERP customer and sales-order shapes they
// are reconciled into, and the ports the reconciliation workflow depends on.
//
// Key concepts:
//   - SourceOrder: immutable snapshot of an order received from the storefront
//   - CustomerCandidate: the ERP customer an order resolves to (person or company)
//   - SyncStatus: whether a source order already exists in the ERP
//   - SalesOrderDraft: the ERP sales order built for a source order
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (ERP client, storefront client, stores) are in the infrastructure layer
package integration
