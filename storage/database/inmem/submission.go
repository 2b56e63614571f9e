package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/openschool/campus/core/submission"
)

type submissionRepository struct {
	db *submissionTable
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

// NewSubmissionRepository also serves as the enrollment.UnitCounter.
func NewSubmissionRepository(db *DB) *submissionRepository {
	return &submissionRepository{db: db.submission}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.EnrollmentID == sub.EnrollmentID && existing.UnitTemplateID == sub.UnitTemplateID {
			return submission.Submission{}, submission.ErrUnitInProgress
		}
	}
	sub.ID = uuid.NewString()
	stored := sub.Clone()
	repo.db.table[sub.ID] = &stored
	return sub, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return sub.Clone(), nil
	}
	return submission.Submission{}, submission.ErrNotFound
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range repo.db.table {
		if filter.EnrollmentID != "" && sub.EnrollmentID != filter.EnrollmentID {
			continue
		}
		if filter.Submitted != nil && sub.IsSubmitted() != *filter.Submitted {
			continue
		}
		if filter.Closed != nil && sub.IsClosed() != *filter.Closed {
			continue
		}
		subs = append(subs, sub.Clone())
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Order != subs[j].Order {
			return subs[i].Order < subs[j].Order
		}
		return subs[i].UnitLetter < subs[j].UnitLetter
	})
	return subs, nil
}

// Modify holds the table lock for the duration of fn; fn must not call back into this repository.
func (repo *submissionRepository) Modify(ctx context.Context, id string, fn func(sub *submission.Submission) error) (submission.Submission, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	sub := stored.Clone()
	if err := fn(&sub); err != nil {
		return submission.Submission{}, err
	}
	updated := sub.Clone()
	repo.db.table[id] = &updated
	return sub, nil
}

func (repo *submissionRepository) CountSubmittedUnits(ctx context.Context, enrollmentID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var n int
	for _, sub := range repo.db.table {
		if sub.EnrollmentID == enrollmentID && sub.IsSubmitted() {
			n++
		}
	}
	return n, nil
}
