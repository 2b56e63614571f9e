package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
)

type (
	courseRow struct {
		ID          string    `db:"id"`
		Code        string    `db:"code"`
		Name        string    `db:"name"`
		Description string    `db:"description"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	unitTemplateRow struct {
		ID          string         `db:"id"`
		CourseID    string         `db:"course_id"`
		Letter      string         `db:"letter"`
		Order       int            `db:"order"`
		Title       string         `db:"title"`
		Description string         `db:"description"`
		Optional    bool           `db:"optional"`
		Assignments types.JSONText `db:"assignments"`
		CreatedAt   time.Time      `db:"created_at"`
		UpdatedAt   time.Time      `db:"updated_at"`
	}

	materialRow struct {
		ID         string    `db:"id"`
		CourseID   string    `db:"course_id"`
		UnitLetter string    `db:"unit_letter"`
		Type       string    `db:"type"`
		Title      string    `db:"title"`
		Order      int       `db:"order"`
		URL        string    `db:"url"`
		CreatedAt  time.Time `db:"created_at"`
	}
)

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func newUnitTemplateRow(ut course.UnitTemplate) (unitTemplateRow, error) {
	assignments, err := toJSON(ut.Assignments)
	if err != nil {
		return unitTemplateRow{}, err
	}
	return unitTemplateRow{
		ID:          ut.ID,
		CourseID:    ut.CourseID,
		Letter:      ut.Letter,
		Order:       ut.Order,
		Title:       ut.Title,
		Description: ut.Description,
		Optional:    ut.Optional,
		Assignments: assignments,
		CreatedAt:   ut.CreatedAt.UTC(),
		UpdatedAt:   ut.UpdatedAt.UTC(),
	}, nil
}

func (r unitTemplateRow) unitTemplate() (course.UnitTemplate, error) {
	ut := course.UnitTemplate{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Letter:      r.Letter,
		Order:       r.Order,
		Title:       r.Title,
		Description: r.Description,
		Optional:    r.Optional,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if err := r.Assignments.Unmarshal(&ut.Assignments); err != nil {
		return course.UnitTemplate{}, errors.Wrap(err, "decoding assignments")
	}
	return ut, nil
}

func (r materialRow) material() course.Material {
	return course.Material{
		ID:         r.ID,
		CourseID:   r.CourseID,
		UnitLetter: r.UnitLetter,
		Type:       course.MaterialType(r.Type),
		Title:      r.Title,
		Order:      r.Order,
		URL:        r.URL,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) course.Repository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	c.ID = uuid.NewString()
	r := courseRow{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
	q := `INSERT INTO courses (id, code, name, description, created_at, updated_at)
		VALUES (:id, :code, :name, :description, :created_at, :updated_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, r); err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	if err := repo.exec.SelectContext(ctx, &rows, `SELECT * FROM courses ORDER BY code`); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var r courseRow
	if err := repo.exec.GetContext(ctx, &r, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course")
	}
	return r.course(), nil
}

func (repo courseRepository) CreateUnitTemplate(ctx context.Context, ut course.UnitTemplate) (course.UnitTemplate, error) {
	ut.ID = uuid.NewString()
	r, err := newUnitTemplateRow(ut)
	if err != nil {
		return course.UnitTemplate{}, err
	}
	q := `INSERT INTO unit_templates (id, course_id, letter, "order", title, description, optional, assignments, created_at, updated_at)
		VALUES (:id, :course_id, :letter, :order, :title, :description, :optional, :assignments, :created_at, :updated_at)`
	if _, err = repo.exec.NamedExecContext(ctx, q, r); err != nil {
		if isUniqueViolation(err) {
			return course.UnitTemplate{}, course.ErrLetterExists
		}
		return course.UnitTemplate{}, errors.Wrap(err, "inserting unit template")
	}
	return ut, nil
}

func (repo courseRepository) UpdateUnitTemplate(ctx context.Context, ut course.UnitTemplate) (course.UnitTemplate, error) {
	r, err := newUnitTemplateRow(ut)
	if err != nil {
		return course.UnitTemplate{}, err
	}
	q := `UPDATE unit_templates SET letter = :letter, "order" = :order, title = :title, description = :description,
		optional = :optional, assignments = :assignments, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.exec.NamedExecContext(ctx, q, r)
	if err != nil {
		if isUniqueViolation(err) {
			return course.UnitTemplate{}, course.ErrLetterExists
		}
		return course.UnitTemplate{}, errors.Wrap(err, "updating unit template")
	}
	if err = checkAffected(res, course.ErrUnitTemplateNotFound); err != nil {
		return course.UnitTemplate{}, err
	}
	return ut, nil
}

func (repo courseRepository) DeleteUnitTemplate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return course.ErrUnitTemplateNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM unit_templates WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting unit template")
	}
	return checkAffected(res, course.ErrUnitTemplateNotFound)
}

func (repo courseRepository) GetUnitTemplate(ctx context.Context, id string) (course.UnitTemplate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.UnitTemplate{}, course.ErrUnitTemplateNotFound
	}
	var r unitTemplateRow
	if err := repo.exec.GetContext(ctx, &r, `SELECT * FROM unit_templates WHERE id = $1`, id); err != nil {
		return course.UnitTemplate{}, trapNoRowsErr(err, course.ErrUnitTemplateNotFound, "finding unit template")
	}
	return r.unitTemplate()
}

func (repo courseRepository) QueryUnitTemplates(ctx context.Context, courseID string) ([]course.UnitTemplate, error) {
	var rows []unitTemplateRow
	q := `SELECT * FROM unit_templates WHERE course_id::text = $1 ORDER BY "order", letter`
	if err := repo.exec.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying unit templates")
	}
	uts := make([]course.UnitTemplate, 0, len(rows))
	for _, r := range rows {
		ut, err := r.unitTemplate()
		if err != nil {
			return nil, err
		}
		uts = append(uts, ut)
	}
	return uts, nil
}

func (repo courseRepository) CreateMaterial(ctx context.Context, m course.Material) (course.Material, error) {
	m.ID = uuid.NewString()
	r := materialRow{
		ID:         m.ID,
		CourseID:   m.CourseID,
		UnitLetter: m.UnitLetter,
		Type:       string(m.Type),
		Title:      m.Title,
		Order:      m.Order,
		URL:        m.URL,
		CreatedAt:  m.CreatedAt.UTC(),
	}
	q := `INSERT INTO materials (id, course_id, unit_letter, type, title, "order", url, created_at)
		VALUES (:id, :course_id, :unit_letter, :type, :title, :order, :url, :created_at)`
	if _, err := repo.exec.NamedExecContext(ctx, q, r); err != nil {
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	return m, nil
}

func (repo courseRepository) GetMaterial(ctx context.Context, id string) (course.Material, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Material{}, course.ErrMaterialNotFound
	}
	var r materialRow
	if err := repo.exec.GetContext(ctx, &r, `SELECT * FROM materials WHERE id = $1`, id); err != nil {
		return course.Material{}, trapNoRowsErr(err, course.ErrMaterialNotFound, "finding material")
	}
	return r.material(), nil
}

func (repo courseRepository) QueryMaterials(ctx context.Context, courseID string) ([]course.Material, error) {
	var rows []materialRow
	q := `SELECT * FROM materials WHERE course_id::text = $1 ORDER BY unit_letter, "order"`
	if err := repo.exec.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, r.material())
	}
	return materials, nil
}
