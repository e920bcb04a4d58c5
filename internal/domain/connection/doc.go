// Package connection contains the Connection bounded context.
// A connection profile is the configuration surface for one storefront-to-ERP link.
//
// Key concepts:
//   - ConnectionProfile: Aggregate root holding credentials, sync toggles, defaults and the webhook secret
//   - DependencyValidator: Rule table enforcing conditional-mandatory fields
//   - PolicyResolver: Derives the immutable ResolvedSyncPolicy consumed by sync workers
//   - FieldMappingEngine: Builds the last-write-wins mapping table for item synchronization
//   - WebhookSecretManager: Issues, rotates and verifies the inbound webhook secret
//   - ThrottleController: Fixed-interval pacing of outbound per-item requests
//
// Everything in this package is free of I/O. Storage, transport and the sync workers
// themselves live in the application and infrastructure layers.
package connection
