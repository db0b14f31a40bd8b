/*
Package domain contains the core domain models and business logic for splitbill.

It defines the entities of the bill-splitting workflow: participants, purchased items,
the ledger with its settlement algorithm, the per-actor session and the typed events
and replies exchanged with transports. This package is kept pure and free of I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Item: One purchased line, tagged Shared or Individual.
  - Ledger: Payer plus every item; owns Settle.
  - Session: Runtime snapshot of one actor's workflow (state, participants, cursor).
  - Event: A typed command coming from a transport (text, button, photo, document).
  - Reply: What the host should render or deliver back to the actor.
*/
package domain
