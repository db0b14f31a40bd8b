package splitbill_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
)

// ExampleEngine_Handle walks one actor through a whole bill: bread shared by everyone,
// coffee for B and C only.
func ExampleEngine_Handle() {
	ctx := context.Background()
	eng := splitbill.New()

	send := func(ev domain.Event) domain.Reply {
		reply, err := eng.Handle(ctx, "demo", ev)
		if err != nil {
			log.Fatal(err)
		}
		return reply
	}

	send(domain.Press(domain.ActionAddMembers))
	send(domain.Text("A, B, C"))
	send(domain.Press(domain.ActionStart))
	send(domain.Text("A"))

	send(domain.Press(domain.ActionAddItem))
	send(domain.Text("bread"))
	send(domain.Text("90"))
	send(domain.Press(domain.ActionShared))

	send(domain.Press(domain.ActionAddItem))
	send(domain.Text("coffee"))
	send(domain.Text("60,00"))
	send(domain.Press(domain.ActionIndividual))
	send(domain.Toggle(1, "B"))
	send(domain.Toggle(1, "C"))

	reply := send(domain.Press(domain.ActionFinish))
	fmt.Println(reply.Ended)
	fmt.Println(strings.SplitN(reply.Messages[0].Text, "\n\n", 2)[0])
	// Output:
	// true
	// Total: 150.00
	// Paid by: A
	// B owes 60.00 to A
	// C owes 60.00 to A
}

func ExampleSettle() {
	members := []string{"A", "B", "C"}
	l := domain.Ledger{Payer: "A"}
	l.Append(domain.NewSharedItem(domain.LineItem{
		Name:      "pizza",
		UnitPrice: decimal.NewFromInt(100),
		Quantity:  decimal.NewFromInt(1),
	}, members))

	s, err := splitbill.Settle(members, l)
	if err != nil {
		log.Fatal(err)
	}
	for _, line := range s.Narrative() {
		fmt.Println(line)
	}
	// Output:
	// Total: 100.00
	// Paid by: A
	// B owes 33.33 to A
	// C owes 33.33 to A
}
