/*
Package splitbill runs a conversational workflow that splits a shared purchase between
participants and works out who owes the payer what.

A session walks an actor through naming the participants, choosing who paid, collecting
items (typed in, scanned from a receipt QR code, or imported from a table), assigning
each item to the people who shared it, and finally settling. Amounts are exact decimals;
they are rounded to cents only when rendered.

# Architecture

The core is transport agnostic. A transport turns its input into a domain.Event and
renders the domain.Reply it gets back:

	eng := splitbill.New(
		splitbill.WithIdleTimeout(30*time.Minute),
		splitbill.WithTableImporter(tabular.New()),
	)

	reply, err := eng.Handle(ctx, "user-42", domain.Press(domain.ActionAddMembers))
	if err != nil {
		// store or lock failure
	}
	for _, msg := range reply.Messages {
		fmt.Println(msg.Text)
		for _, b := range msg.Keyboard.Buttons() {
			fmt.Println(" -", b.Label) // pressing b delivers b.Event
		}
	}

Buttons carry complete events, so a transport never parses callback strings itself.

# Sessions

Sessions live in a ports.SessionStore (in memory by default, Redis for several replicas)
and every event for an actor runs under that actor's lock. Sessions that stay idle
longer than the idle timeout are evicted by Engine.Sweep or Engine.RunJanitor.

# Settlement

When every Individual item has an assignee, finishing the session settles the ledger:
Shared items are split between all participants, Individual items between their
assignees, and every non-payer with a positive share owes it to the payer. The final
reply carries the narrative, a verification listing, a CSV export and a chart.
*/
package splitbill
