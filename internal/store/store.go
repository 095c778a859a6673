package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"payment-reconciliation-service/internal/models"
	apperrors "payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"
)

// Store gives the service durable storage for transactions, matches, and
// feedback.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open connects to Postgres with the given DSN and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeConnectionFailed, "open", err)
	}
	return New(db)
}

// New wraps an existing gorm connection and migrates the schema. Tests use
// this with an in-memory database.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&transactionRecord{}, &matchRecord{}, &feedbackRecord{}); err != nil {
		return nil, apperrors.StorageError(apperrors.CodeQueryFailed, "migrate", err)
	}
	return &Store{
		db:  db,
		log: logger.GetGlobalLogger().WithComponent("store"),
	}, nil
}

// SaveTransactions upserts a batch of transactions keyed by ID.
func (s *Store) SaveTransactions(ctx context.Context, transactions []*models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	records := make([]*transactionRecord, 0, len(transactions))
	for _, tx := range transactions {
		if err := tx.Validate(); err != nil {
			return apperrors.ValidationError(apperrors.CodeInvalidData, "transaction", tx.ID, err)
		}
		records = append(records, toTransactionRecord(tx))
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&records).Error
	if err != nil {
		return apperrors.StorageError(apperrors.CodeQueryFailed, "save transactions", err)
	}
	return nil
}

// TransactionsByScope loads one side of a scope, in insertion order.
func (s *Store) TransactionsByScope(ctx context.Context, scope string, side models.Side) ([]*models.Transaction, error) {
	var records []*transactionRecord
	err := s.db.WithContext(ctx).
		Where("scope = ? AND side = ?", scope, side.String()).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeQueryFailed, "load transactions", err)
	}

	transactions := make([]*models.Transaction, 0, len(records))
	for _, record := range records {
		transactions = append(transactions, record.toModel())
	}
	return transactions, nil
}

// Scopes lists every scope that has at least one stored transaction.
func (s *Store) Scopes(ctx context.Context) ([]string, error) {
	var scopes []string
	err := s.db.WithContext(ctx).
		Model(&transactionRecord{}).
		Distinct("scope").
		Order("scope").
		Pluck("scope", &scopes).Error
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeQueryFailed, "list scopes", err)
	}
	return scopes, nil
}

// ReplaceMatches deletes a scope's previous matches and inserts the new set
// in one database transaction. Matches without an ID get one assigned.
func (s *Store) ReplaceMatches(ctx context.Context, scope string, matches []*models.Match) error {
	records := make([]*matchRecord, 0, len(matches))
	for _, match := range matches {
		if match.ID == "" {
			match.ID = uuid.NewString()
		}
		if err := match.Validate(); err != nil {
			return apperrors.ValidationError(apperrors.CodeInvalidData, "match", match.ID, err)
		}
		record, err := toMatchRecord(match)
		if err != nil {
			return apperrors.InternalError("encode match criteria", err)
		}
		records = append(records, record)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("scope = ?", scope).Delete(&matchRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		return apperrors.StorageError(apperrors.CodeTransactionFailed, "replace matches", err)
	}

	s.log.WithScope(scope).WithField("matches", len(records)).Debug("match set replaced")
	return nil
}

// MatchFilter narrows and pages match listings.
type MatchFilter struct {
	Status        models.MatchStatus
	MinConfidence float64
	Limit         int
	Offset        int
}

// MatchesByScope lists a scope's matches, highest confidence first, with the
// total count before paging.
func (s *Store) MatchesByScope(ctx context.Context, scope string, filter MatchFilter) ([]*models.Match, int64, error) {
	query := s.db.WithContext(ctx).Model(&matchRecord{}).Where("scope = ?", scope)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.MinConfidence > 0 {
		query = query.Where("confidence >= ?", filter.MinConfidence)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.StorageError(apperrors.CodeQueryFailed, "count matches", err)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var records []*matchRecord
	if err := query.Order("confidence DESC, id").Find(&records).Error; err != nil {
		return nil, 0, apperrors.StorageError(apperrors.CodeQueryFailed, "list matches", err)
	}

	matches := make([]*models.Match, 0, len(records))
	for _, record := range records {
		match, err := record.toModel()
		if err != nil {
			return nil, 0, apperrors.InternalError("decode match criteria", err)
		}
		matches = append(matches, match)
	}
	return matches, total, nil
}

// MatchByID loads one match within a scope.
func (s *Store) MatchByID(ctx context.Context, scope, id string) (*models.Match, error) {
	var record matchRecord
	err := s.db.WithContext(ctx).
		Where("scope = ? AND id = ?", scope, id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.StorageError(apperrors.CodeNotFound, "load match", err).
			WithContext("match_id", id)
	}
	if err != nil {
		return nil, apperrors.StorageError(apperrors.CodeQueryFailed, "load match", err)
	}

	match, err := record.toModel()
	if err != nil {
		return nil, apperrors.InternalError("decode match criteria", err)
	}
	return match, nil
}

// UpdateMatchStatus flips a match's review status and returns the updated
// match.
func (s *Store) UpdateMatchStatus(ctx context.Context, scope, id string, status models.MatchStatus) (*models.Match, error) {
	if !status.IsValid() {
		return nil, apperrors.ValidationError(apperrors.CodeInvalidData, "status", status, nil)
	}

	result := s.db.WithContext(ctx).
		Model(&matchRecord{}).
		Where("scope = ? AND id = ?", scope, id).
		Update("status", status.String())
	if result.Error != nil {
		return nil, apperrors.StorageError(apperrors.CodeQueryFailed, "update match status", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.StorageError(apperrors.CodeNotFound, "update match status", nil).
			WithContext("match_id", id)
	}

	return s.MatchByID(ctx, scope, id)
}

// RecordFeedback stores a reviewer's verdict. Feedback is append-only and is
// never read back by the matching engine.
func (s *Store) RecordFeedback(ctx context.Context, feedback *models.Feedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.SubmittedAt.IsZero() {
		feedback.SubmittedAt = time.Now().UTC()
	}
	if err := feedback.Validate(); err != nil {
		return apperrors.ValidationError(apperrors.CodeInvalidData, "feedback", feedback.ID, err)
	}

	if err := s.db.WithContext(ctx).Create(toFeedbackRecord(feedback)).Error; err != nil {
		return apperrors.StorageError(apperrors.CodeQueryFailed, "record feedback", err)
	}
	return nil
}
