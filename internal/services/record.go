package services

import (
	"context"
	"errors"

	"github.com/repsnrecord/apiserver/internal/store"
	"github.com/repsnrecord/apiserver/types"
)

// RecordRepository defines persistence operations for personal records.
type RecordRepository interface {
	ListByUser(ctx context.Context, userID string) ([]types.PersonalRecord, error)
	Get(ctx context.Context, userID, exerciseName, recordType string) (types.PersonalRecord, error)
	Insert(ctx context.Context, record types.PersonalRecord) (types.PersonalRecord, error)
	Improve(ctx context.Context, record types.PersonalRecord) (types.PersonalRecord, error)
}

// RecordResult reports the outcome of a record submission.
type RecordResult struct {
	Record        types.PersonalRecord `json:"record"`
	IsNewRecord   bool                 `json:"isNewRecord"`
	IsFirstRecord bool                 `json:"isFirstRecord,omitempty"`
	// PreviousValue is set when an existing record was beaten.
	PreviousValue *float64 `json:"previousValue,omitempty"`
	// CurrentRecord is set when the submission did not beat the stored
	// record.
	CurrentRecord *float64 `json:"currentRecord,omitempty"`
}

// RecordService encapsulates personal-record use-cases.
type RecordService struct {
	repo RecordRepository
}

func NewRecordService(repo RecordRepository) *RecordService {
	return &RecordService{repo: repo}
}

func (s *RecordService) List(ctx context.Context, userID string) ([]types.PersonalRecord, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Submit applies the upsert-if-greater rule: first submission inserts, a
// strictly greater value updates, anything else leaves the stored record
// untouched. A record value is never lowered.
func (s *RecordService) Submit(ctx context.Context, candidate types.PersonalRecord) (RecordResult, error) {
	existing, err := s.repo.Get(ctx, candidate.UserID, candidate.ExerciseName, candidate.RecordType)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return RecordResult{}, err
		}
		inserted, err := s.repo.Insert(ctx, candidate)
		if err != nil {
			return RecordResult{}, err
		}
		return RecordResult{Record: inserted, IsNewRecord: true, IsFirstRecord: true}, nil
	}

	if candidate.Value > existing.Value {
		previous := existing.Value
		improved, err := s.repo.Improve(ctx, candidate)
		if err != nil {
			return RecordResult{}, err
		}
		return RecordResult{Record: improved, IsNewRecord: true, PreviousValue: &previous}, nil
	}

	current := existing.Value
	return RecordResult{Record: existing, IsNewRecord: false, CurrentRecord: &current}, nil
}
