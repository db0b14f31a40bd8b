/*
Package ports defines the driven ports (interfaces) for the splitbill engine.

These interfaces decouple the session state machine from storage backends and from
the external collaborators that feed it line items or issue invoices.

# Key Interfaces

  - SessionStore: Persists and loads the in-flight Session of each actor.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
  - CodeDecoder: Extracts the raw fiscal code from a receipt photo.
  - ReceiptLookup: Resolves a raw fiscal code into purchased line items.
  - TableImporter: Parses an uploaded table into line items.
  - InvoiceIssuer: Asks a payment provider to bill a debtor.
*/
package ports
