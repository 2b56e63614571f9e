package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/grading"
	"github.com/openschool/campus/core/submission"
)

const submissionColumns = `id, enrollment_id, unit_template_id, unit_letter, title, "order", optional, assignments,
	points, mark, mark_override, submitted, skipped, closed, returned, admin_comment, tutor_id, created_at, updated_at`

type submissionRow struct {
	ID             string         `db:"id"`
	EnrollmentID   string         `db:"enrollment_id"`
	UnitTemplateID string         `db:"unit_template_id"`
	UnitLetter     string         `db:"unit_letter"`
	Title          string         `db:"title"`
	Order          int            `db:"order"`
	Optional       bool           `db:"optional"`
	Assignments    types.JSONText `db:"assignments"`
	Points         float64        `db:"points"`
	Mark           null.Float64   `db:"mark"`
	MarkOverride   null.Float64   `db:"mark_override"`
	Submitted      null.Time      `db:"submitted"`
	Skipped        bool           `db:"skipped"`
	Closed         null.Time      `db:"closed"`
	Returned       null.Time      `db:"returned"`
	AdminComment   string         `db:"admin_comment"`
	TutorID        null.String    `db:"tutor_id"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func newSubmissionRow(sub submission.Submission) (submissionRow, error) {
	assignments, err := toJSON(sub.Assignments)
	if err != nil {
		return submissionRow{}, err
	}
	return submissionRow{
		ID:             sub.ID,
		EnrollmentID:   sub.EnrollmentID,
		UnitTemplateID: sub.UnitTemplateID,
		UnitLetter:     sub.UnitLetter,
		Title:          sub.Title,
		Order:          sub.Order,
		Optional:       sub.Optional,
		Assignments:    assignments,
		Points:         sub.Points,
		Mark:           null.Float64FromPtr(sub.Mark),
		MarkOverride:   null.Float64FromPtr(sub.MarkOverride),
		Submitted:      nullTime(sub.Submitted),
		Skipped:        sub.Skipped,
		Closed:         nullTime(sub.Closed),
		Returned:       nullTime(sub.Returned),
		AdminComment:   sub.AdminComment,
		TutorID:        sub.TutorID,
		CreatedAt:      sub.CreatedAt.UTC(),
		UpdatedAt:      sub.UpdatedAt.UTC(),
	}, nil
}

func (r submissionRow) submission() (submission.Submission, error) {
	sub := submission.Submission{
		ID:             r.ID,
		EnrollmentID:   r.EnrollmentID,
		UnitTemplateID: r.UnitTemplateID,
		UnitLetter:     r.UnitLetter,
		Title:          r.Title,
		Order:          r.Order,
		Optional:       r.Optional,
		Marks: grading.Marks{
			Points:       r.Points,
			Mark:         r.Mark.Ptr(),
			MarkOverride: r.MarkOverride.Ptr(),
		},
		Submitted:    timePtr(r.Submitted),
		Skipped:      r.Skipped,
		Closed:       timePtr(r.Closed),
		Returned:     timePtr(r.Returned),
		AdminComment: r.AdminComment,
		TutorID:      r.TutorID,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if err := r.Assignments.Unmarshal(&sub.Assignments); err != nil {
		return submission.Submission{}, errors.Wrap(err, "decoding assignments")
	}
	return sub, nil
}

func nullTime(t *time.Time) null.Time {
	if t == nil {
		return null.Time{}
	}
	return null.TimeFrom(t.UTC())
}

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

type submissionRepository struct {
	db core.DB
}

var _ submission.Repository = (*submissionRepository)(nil) // interface compliance check

func NewSubmissionRepository(db core.DB) *submissionRepository {
	return &submissionRepository{db: db}
}

func (repo submissionRepository) CreateSubmission(ctx context.Context, sub submission.Submission) (submission.Submission, error) {
	sub.ID = uuid.NewString()
	r, err := newSubmissionRow(sub)
	if err != nil {
		return submission.Submission{}, err
	}
	q := `INSERT INTO submissions (` + submissionColumns + `) VALUES (:id, :enrollment_id, :unit_template_id,
		:unit_letter, :title, :order, :optional, :assignments, :points, :mark, :mark_override, :submitted, :skipped,
		:closed, :returned, :admin_comment, :tutor_id, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, r); err != nil {
		if isUniqueViolation(err) {
			return submission.Submission{}, submission.ErrUnitInProgress
		}
		return submission.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo submissionRepository) get(ctx context.Context, exec core.DBExecutor, id string, forUpdate bool) (submission.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return submission.Submission{}, submission.ErrNotFound
	}
	q := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var r submissionRow
	if err := exec.GetContext(ctx, &r, q, id); err != nil {
		return submission.Submission{}, trapNoRowsErr(err, submission.ErrNotFound, "finding submission")
	}
	return r.submission()
}

func (repo submissionRepository) GetSubmission(ctx context.Context, id string) (submission.Submission, error) {
	return repo.get(ctx, repo.db, id, false)
}

func (repo submissionRepository) QuerySubmissions(ctx context.Context, filter submission.QueryFilter) ([]submission.Submission, error) {
	var w where
	if filter.EnrollmentID != "" {
		w.add("enrollment_id::text = ?", filter.EnrollmentID)
	}
	if filter.Submitted != nil {
		if *filter.Submitted {
			w.add("submitted IS NOT NULL")
		} else {
			w.add("submitted IS NULL")
		}
	}
	if filter.Closed != nil {
		if *filter.Closed {
			w.add("closed IS NOT NULL")
		} else {
			w.add("closed IS NULL")
		}
	}

	var rows []submissionRow
	q := `SELECT ` + submissionColumns + ` FROM submissions` + w.String() + ` ORDER BY "order", unit_letter`
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	subs := make([]submission.Submission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.submission()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Modify holds a row lock on the submission for the duration of fn.
func (repo submissionRepository) Modify(ctx context.Context, id string, fn func(sub *submission.Submission) error) (submission.Submission, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return submission.Submission{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	sub, err := repo.get(ctx, tx, id, true)
	if err != nil {
		return submission.Submission{}, err
	}
	if err = fn(&sub); err != nil {
		return submission.Submission{}, err
	}

	r, err := newSubmissionRow(sub)
	if err != nil {
		return submission.Submission{}, err
	}
	q := `UPDATE submissions SET assignments = :assignments, points = :points, mark = :mark,
		mark_override = :mark_override, submitted = :submitted, skipped = :skipped, closed = :closed,
		returned = :returned, admin_comment = :admin_comment, tutor_id = :tutor_id, updated_at = :updated_at
		WHERE id = :id`
	if _, err = tx.NamedExecContext(ctx, q, r); err != nil {
		return submission.Submission{}, errors.Wrap(err, "updating submission")
	}
	if err = tx.Commit(); err != nil {
		return submission.Submission{}, errors.Wrap(err, "committing submission")
	}
	return sub, nil
}

func (repo submissionRepository) CountSubmittedUnits(ctx context.Context, enrollmentID string) (int, error) {
	var n int
	q := `SELECT COUNT(*) FROM submissions WHERE enrollment_id::text = $1 AND submitted IS NOT NULL`
	if err := repo.db.GetContext(ctx, &n, q, enrollmentID); err != nil {
		return 0, errors.Wrap(err, "counting submitted units")
	}
	return n, nil
}
