package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"payment-reconciliation-service/internal/models"
	apperrors "payment-reconciliation-service/pkg/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_fk=1"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Shared-cache in-memory databases persist per connection; isolate each
	// test by dropping leftovers.
	db.Exec("DROP TABLE IF EXISTS transactions")
	db.Exec("DROP TABLE IF EXISTS matches")
	db.Exec("DROP TABLE IF EXISTS feedback")

	store, err := New(db)
	require.NoError(t, err)
	return store
}

func storeTx(id, scope string, side models.Side, amount float64) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		Scope:       scope,
		Side:        side,
		Reference:   "900823",
		Amount:      decimal.NewFromFloat(amount),
		Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Description: "pago cuota",
	}
}

func storeMatch(scope, collectionID, bankID string, confidence float64) *models.Match {
	return &models.Match{
		Scope:                   scope,
		CollectionTransactionID: collectionID,
		BankTransactionID:       bankID,
		Confidence:              confidence,
		Type:                    models.MatchTypeReference,
		Criteria: models.MatchCriteria{
			ReferenceKind: models.ReferenceKindMain,
			MatchLocation: models.MatchLocationReference,
			AmountMatch:   true,
		},
		Status:    models.MatchStatusAuto,
		MatchedAt: time.Now().UTC(),
	}
}

func TestSaveAndLoadTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveTransactions(ctx, []*models.Transaction{
		storeTx("c1", "acct-17", models.SideCollection, 1500.00),
		storeTx("b1", "acct-17", models.SideBank, -1498.50),
		storeTx("c2", "acct-99", models.SideCollection, 200.00),
	})
	require.NoError(t, err)

	collections, err := store.TransactionsByScope(ctx, "acct-17", models.SideCollection)
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, "c1", collections[0].ID)
	assert.True(t, collections[0].Amount.Equal(decimal.NewFromFloat(1500.00)))

	banks, err := store.TransactionsByScope(ctx, "acct-17", models.SideBank)
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, models.SideBank, banks[0].Side)
}

func TestSaveTransactionsUpsertsByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx := storeTx("c1", "acct-17", models.SideCollection, 100.00)
	require.NoError(t, store.SaveTransactions(ctx, []*models.Transaction{tx}))

	tx.Amount = decimal.NewFromFloat(250.00)
	require.NoError(t, store.SaveTransactions(ctx, []*models.Transaction{tx}))

	loaded, err := store.TransactionsByScope(ctx, "acct-17", models.SideCollection)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Amount.Equal(decimal.NewFromFloat(250.00)))
}

func TestScopes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []*models.Transaction{
		storeTx("c1", "acct-b", models.SideCollection, 100.00),
		storeTx("c2", "acct-a", models.SideCollection, 100.00),
		storeTx("c3", "acct-a", models.SideBank, -100.00),
	}))

	scopes, err := store.Scopes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acct-a", "acct-b"}, scopes)
}

func TestReplaceMatchesIsWholesale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := []*models.Match{
		storeMatch("acct-17", "c1", "b1", 0.95),
		storeMatch("acct-17", "c2", "b2", 0.60),
	}
	require.NoError(t, store.ReplaceMatches(ctx, "acct-17", first))

	second := []*models.Match{storeMatch("acct-17", "c1", "b2", 0.85)}
	require.NoError(t, store.ReplaceMatches(ctx, "acct-17", second))

	matches, total, err := store.MatchesByScope(ctx, "acct-17", MatchFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, matches, 1)
	assert.Equal(t, "b2", matches[0].BankTransactionID)
	assert.NotEmpty(t, matches[0].ID)
	assert.Equal(t, models.ReferenceKindMain, matches[0].Criteria.ReferenceKind)
}

func TestReplaceMatchesEmptySetClearsScope(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceMatches(ctx, "acct-17",
		[]*models.Match{storeMatch("acct-17", "c1", "b1", 0.9)}))
	require.NoError(t, store.ReplaceMatches(ctx, "acct-17", nil))

	_, total, err := store.MatchesByScope(ctx, "acct-17", MatchFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMatchesByScopeFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	matches := []*models.Match{
		storeMatch("acct-17", "c1", "b1", 0.95),
		storeMatch("acct-17", "c2", "b2", 0.55),
		storeMatch("acct-17", "c3", "b3", 0.45),
	}
	require.NoError(t, store.ReplaceMatches(ctx, "acct-17", matches))

	confident, total, err := store.MatchesByScope(ctx, "acct-17", MatchFilter{MinConfidence: 0.5})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, confident, 2)
	assert.True(t, confident[0].Confidence >= confident[1].Confidence)

	paged, total, err := store.MatchesByScope(ctx, "acct-17", MatchFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, paged, 1)
}

func TestMatchByIDNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.MatchByID(context.Background(), "acct-17", "missing")
	require.Error(t, err)

	appErr, ok := apperrors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestUpdateMatchStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.ReplaceMatches(ctx, "acct-17",
		[]*models.Match{storeMatch("acct-17", "c1", "b1", 0.9)}))
	stored, _, err := store.MatchesByScope(ctx, "acct-17", MatchFilter{})
	require.NoError(t, err)

	updated, err := store.UpdateMatchStatus(ctx, "acct-17", stored[0].ID, models.MatchStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusRejected, updated.Status)

	_, err = store.UpdateMatchStatus(ctx, "acct-17", "missing", models.MatchStatusManual)
	require.Error(t, err)

	_, err = store.UpdateMatchStatus(ctx, "acct-17", stored[0].ID, "pending")
	require.Error(t, err)
}

func TestRecordFeedback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	feedback := &models.Feedback{
		Scope:              "acct-17",
		MatchID:            "m-1",
		Action:             models.FeedbackReject,
		Explanation:        "amounts differ",
		PreviousConfidence: 0.85,
		PreviousType:       models.MatchTypeAmount,
	}
	require.NoError(t, store.RecordFeedback(ctx, feedback))
	assert.NotEmpty(t, feedback.ID)
	assert.False(t, feedback.SubmittedAt.IsZero())

	invalid := &models.Feedback{Scope: "acct-17", MatchID: "m-1", Action: "maybe"}
	require.Error(t, store.RecordFeedback(ctx, invalid))
}
