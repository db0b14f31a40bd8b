package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	actorID := "contract-actor-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		s := domain.NewSession(actorID, time.Now())
		s.State = domain.StateReviewingAssignments
		s.Participants = []string{"A", "B"}
		s.Ledger.Payer = "A"
		s.Ledger.Append(domain.NewIndividualItem(domain.LineItem{
			Name:      "coffee",
			UnitPrice: decimal.RequireFromString("2.50"),
			Quantity:  decimal.NewFromInt(2),
		}))
		s.Ledger.Items[0].Assignees = []string{"B"}

		err := store.Save(ctx, actorID, s)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, actorID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, s.State, loaded.State)
		assert.Equal(t, s.Participants, loaded.Participants)
		assert.Equal(t, "A", loaded.Ledger.Payer)
		require.Len(t, loaded.Ledger.Items, 1)
		assert.Equal(t, []string{"B"}, loaded.Ledger.Items[0].Assignees)
		assert.True(t, loaded.Ledger.Items[0].Total().Equal(decimal.NewFromInt(5)))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+actorID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, actorID, domain.NewSession(actorID, time.Now()))
		require.NoError(t, err)

		err = store.Delete(ctx, actorID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, actorID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, actorID), "Deleting twice is a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := actorID + "-1"
		id2 := actorID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1, time.Now()))
		_ = store.Save(ctx, id2, domain.NewSession(id2, time.Now()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		actors, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, actors, id1)
		assert.Contains(t, actors, id2)
	})
}
