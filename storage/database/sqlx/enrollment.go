package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/scorm"
)

type (
	enrollmentRow struct {
		ID            string    `db:"id"`
		StudentID     string    `db:"student_id"`
		CourseID      string    `db:"course_id"`
		Currency      string    `db:"currency"`
		Cost          float64   `db:"cost"`
		Installment   float64   `db:"installment"`
		PaymentStatus string    `db:"payment_status"`
		OnHold        bool      `db:"on_hold"`
		CreatedAt     time.Time `db:"created_at"`
		UpdatedAt     time.Time `db:"updated_at"`
	}

	materialCompletionRow struct {
		EnrollmentID string    `db:"enrollment_id"`
		MaterialID   string    `db:"material_id"`
		CreatedAt    time.Time `db:"created_at"`
	}

	materialDataRow struct {
		EnrollmentID string         `db:"enrollment_id"`
		MaterialID   string         `db:"material_id"`
		Version      string         `db:"version"`
		Data         types.JSONText `db:"data"`
		UpdatedAt    time.Time      `db:"updated_at"`
	}
)

func newEnrollmentRow(enr enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:            enr.ID,
		StudentID:     enr.StudentID,
		CourseID:      enr.CourseID,
		Currency:      enr.Currency,
		Cost:          enr.Cost,
		Installment:   enr.Installment,
		PaymentStatus: string(enr.PaymentStatus),
		OnHold:        enr.OnHold,
		CreatedAt:     enr.CreatedAt.UTC(),
		UpdatedAt:     enr.UpdatedAt.UTC(),
	}
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:            r.ID,
		StudentID:     r.StudentID,
		CourseID:      r.CourseID,
		Currency:      r.Currency,
		Cost:          r.Cost,
		Installment:   r.Installment,
		PaymentStatus: enrollment.PaymentStatus(r.PaymentStatus),
		OnHold:        r.OnHold,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type enrollmentRepository struct {
	exec core.DBExecutor
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) enrollment.Repository {
	return &enrollmentRepository{exec: exec}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.NewString()
	q := `INSERT INTO enrollments (id, student_id, course_id, currency, cost, installment, payment_status, on_hold, created_at, updated_at)
		VALUES (:id, :student_id, :course_id, :currency, :cost, :installment, :payment_status, :on_hold, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, newEnrollmentRow(enr)); err != nil {
		if isUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrExists
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	var r enrollmentRow
	if err := repo.exec.GetContext(ctx, &r, `SELECT * FROM enrollments WHERE id = $1`, id); err != nil {
		return enrollment.Enrollment{}, trapNoRowsErr(err, enrollment.ErrNotFound, "finding enrollment")
	}
	return r.enrollment(), nil
}

func (repo enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	var w where
	if filter.StudentID != "" {
		w.add("student_id::text = ?", filter.StudentID)
	}
	if filter.CourseID != "" {
		w.add("course_id::text = ?", filter.CourseID)
	}
	if filter.OnHold != nil {
		w.add("on_hold = ?", *filter.OnHold)
	}

	var rows []enrollmentRow
	q := `SELECT * FROM enrollments` + w.String() + ` ORDER BY created_at DESC`
	if err := repo.exec.SelectContext(ctx, &rows, repo.exec.Rebind(q), w.args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.enrollment())
	}
	return enrs, nil
}

func (repo enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	q := `UPDATE enrollments SET currency = :currency, cost = :cost, installment = :installment,
		payment_status = :payment_status, on_hold = :on_hold, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, newEnrollmentRow(enr))
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if err = checkAffected(res, enrollment.ErrNotFound); err != nil {
		return enrollment.Enrollment{}, err
	}
	return enr, nil
}

func (repo enrollmentRepository) CreateMaterialCompletion(ctx context.Context, mc enrollment.MaterialCompletion) error {
	q := `INSERT INTO material_completions (enrollment_id, material_id, created_at)
		VALUES (:enrollment_id, :material_id, :created_at)
		ON CONFLICT DO NOTHING`
	r := materialCompletionRow{
		EnrollmentID: mc.EnrollmentID,
		MaterialID:   mc.MaterialID,
		CreatedAt:    mc.CreatedAt.UTC(),
	}
	if _, err := repo.exec.NamedExecContext(ctx, q, r); err != nil {
		return errors.Wrap(err, "inserting material completion")
	}
	return nil
}

func (repo enrollmentRepository) DeleteMaterialCompletion(ctx context.Context, enrollmentID, materialID string) error {
	q := `DELETE FROM material_completions WHERE enrollment_id = $1 AND material_id = $2`
	if _, err := repo.exec.ExecContext(ctx, q, enrollmentID, materialID); err != nil {
		return errors.Wrap(err, "deleting material completion")
	}
	return nil
}

func (repo enrollmentRepository) QueryMaterialCompletions(ctx context.Context, enrollmentID string) ([]enrollment.MaterialCompletion, error) {
	var rows []materialCompletionRow
	q := `SELECT * FROM material_completions WHERE enrollment_id::text = $1 ORDER BY created_at`
	if err := repo.exec.SelectContext(ctx, &rows, q, enrollmentID); err != nil {
		return nil, errors.Wrap(err, "querying material completions")
	}
	mcs := make([]enrollment.MaterialCompletion, 0, len(rows))
	for _, r := range rows {
		mcs = append(mcs, enrollment.MaterialCompletion{
			EnrollmentID: r.EnrollmentID,
			MaterialID:   r.MaterialID,
			CreatedAt:    r.CreatedAt.UTC(),
		})
	}
	return mcs, nil
}

func (repo enrollmentRepository) GetMaterialData(ctx context.Context, enrollmentID, materialID string) (enrollment.MaterialData, error) {
	var r materialDataRow
	q := `SELECT * FROM material_data WHERE enrollment_id = $1 AND material_id = $2`
	if err := repo.exec.GetContext(ctx, &r, q, enrollmentID, materialID); err != nil {
		return enrollment.MaterialData{}, trapNoRowsErr(err, enrollment.ErrMaterialDataNotFound, "finding material data")
	}
	md := enrollment.MaterialData{
		EnrollmentID: r.EnrollmentID,
		MaterialID:   r.MaterialID,
		Version:      scorm.Version(r.Version),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if err := r.Data.Unmarshal(&md.Data); err != nil {
		return enrollment.MaterialData{}, errors.Wrap(err, "decoding material data")
	}
	return md, nil
}

func (repo enrollmentRepository) SaveMaterialData(ctx context.Context, md enrollment.MaterialData) (enrollment.MaterialData, error) {
	data, err := toJSON(md.Data)
	if err != nil {
		return enrollment.MaterialData{}, err
	}
	r := materialDataRow{
		EnrollmentID: md.EnrollmentID,
		MaterialID:   md.MaterialID,
		Version:      string(md.Version),
		Data:         data,
		UpdatedAt:    md.UpdatedAt.UTC(),
	}
	q := `INSERT INTO material_data (enrollment_id, material_id, version, data, updated_at)
		VALUES (:enrollment_id, :material_id, :version, :data, :updated_at)
		ON CONFLICT (enrollment_id, material_id)
		DO UPDATE SET version = EXCLUDED.version, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	if _, err = repo.exec.NamedExecContext(ctx, q, r); err != nil {
		return enrollment.MaterialData{}, errors.Wrap(err, "saving material data")
	}
	return md, nil
}
