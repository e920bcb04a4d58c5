// Package integration contains the storefront integration bounded context.
// It links ERP items to storefront products and derives the values pushed to
// a storefront from ERP state.
//
// Key concepts:
//   - StorefrontClient: port for the storefront REST API (WooCommerce)
//   - ItemLink: entity linking an ERP item to a storefront product of one connection profile
//   - Item: the ERP item master record, created and updated by item sync
//   - Bin / AggregateStock: stock quantity pushed to the storefront
//   - ItemPrice / SelectPriceRate: price pushed during price list synchronization
//   - SyncResult: outcome of a synchronization run
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
