package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("course not found")
	ErrUnitTemplateNotFound = core.NewNotFoundError("unit template not found")
	ErrMaterialNotFound     = core.NewNotFoundError("material not found")
	ErrCodeExists           = errors.New("a course with this code already exists")
	ErrLetterExists         = errors.New("a unit with this letter already exists")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course) (Course, error)
		QueryCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)

		CreateUnitTemplate(ctx context.Context, ut UnitTemplate) (UnitTemplate, error)
		UpdateUnitTemplate(ctx context.Context, ut UnitTemplate) (UnitTemplate, error)
		DeleteUnitTemplate(ctx context.Context, id string) error
		GetUnitTemplate(ctx context.Context, id string) (UnitTemplate, error)
		// QueryUnitTemplates returns the templates of a course sorted by order, then letter.
		QueryUnitTemplates(ctx context.Context, courseID string) ([]UnitTemplate, error)

		CreateMaterial(ctx context.Context, m Material) (Material, error)
		GetMaterial(ctx context.Context, id string) (Material, error)
		// QueryMaterials returns the materials of a course sorted by unit letter, then order.
		QueryMaterials(ctx context.Context, courseID string) ([]Material, error)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		ListCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)

		CreateUnitTemplate(ctx context.Context, courseID string, in UnitTemplateInput) (UnitTemplate, error)
		UpdateUnitTemplate(ctx context.Context, ut UnitTemplate, in UnitTemplateInput) (UnitTemplate, error)
		DeleteUnitTemplate(ctx context.Context, id string) error
		GetUnitTemplate(ctx context.Context, id string) (UnitTemplate, error)
		ListUnitTemplates(ctx context.Context, courseID string) ([]UnitTemplate, error)

		CreateMaterial(ctx context.Context, courseID string, nm NewMaterial) (Material, error)
		GetMaterial(ctx context.Context, id string) (Material, error)
		ListMaterials(ctx context.Context, courseID string) ([]Material, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	now := NowFunc().UTC()
	c, err := svc.repo.CreateCourse(ctx, Course{
		Code:        nc.Code,
		Name:        nc.Name,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Cause(err) == ErrCodeExists {
		return Course{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return c, err
}

func (svc *service) ListCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) CreateUnitTemplate(ctx context.Context, courseID string, in UnitTemplateInput) (UnitTemplate, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return UnitTemplate{}, err
	}
	if err := svc.checkLetter(ctx, courseID, in.Letter, ""); err != nil {
		return UnitTemplate{}, err
	}

	now := NowFunc().UTC()
	ut := UnitTemplate{CourseID: courseID, CreatedAt: now}
	ut.apply(in, now)
	return svc.repo.CreateUnitTemplate(ctx, ut)
}

func (svc *service) UpdateUnitTemplate(ctx context.Context, ut UnitTemplate, in UnitTemplateInput) (UnitTemplate, error) {
	if err := svc.checkLetter(ctx, ut.CourseID, in.Letter, ut.ID); err != nil {
		return UnitTemplate{}, err
	}
	ut.apply(in, NowFunc().UTC())
	return svc.repo.UpdateUnitTemplate(ctx, ut)
}

func (ut *UnitTemplate) apply(in UnitTemplateInput, now time.Time) {
	ut.Letter = in.Letter
	ut.Order = in.Order
	ut.Title = in.Title
	ut.Description = in.Description
	ut.Optional = in.Optional
	ut.Assignments = in.Assignments
	ut.assignIDs()
	ut.UpdatedAt = now
}

// checkLetter ensures no other unit template of the course uses letter.
func (svc *service) checkLetter(ctx context.Context, courseID, letter, excludedID string) error {
	uts, err := svc.repo.QueryUnitTemplates(ctx, courseID)
	if err != nil {
		return errors.Wrap(err, "querying unit templates")
	}
	for _, ut := range uts {
		if ut.Letter == letter && ut.ID != excludedID {
			return core.NewValidationError(ErrLetterExists, core.FieldError{Field: "letter", Error: ErrLetterExists.Error()})
		}
	}
	return nil
}

func (svc *service) DeleteUnitTemplate(ctx context.Context, id string) error {
	return svc.repo.DeleteUnitTemplate(ctx, id)
}

func (svc *service) GetUnitTemplate(ctx context.Context, id string) (UnitTemplate, error) {
	return svc.repo.GetUnitTemplate(ctx, id)
}

func (svc *service) ListUnitTemplates(ctx context.Context, courseID string) ([]UnitTemplate, error) {
	return svc.repo.QueryUnitTemplates(ctx, courseID)
}

func (svc *service) CreateMaterial(ctx context.Context, courseID string, nm NewMaterial) (Material, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Material{}, err
	}
	return svc.repo.CreateMaterial(ctx, Material{
		CourseID:   courseID,
		UnitLetter: nm.UnitLetter,
		Type:       nm.Type,
		Title:      nm.Title,
		Order:      nm.Order,
		URL:        nm.URL,
		CreatedAt:  NowFunc().UTC(),
	})
}

func (svc *service) GetMaterial(ctx context.Context, id string) (Material, error) {
	return svc.repo.GetMaterial(ctx, id)
}

func (svc *service) ListMaterials(ctx context.Context, courseID string) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, courseID)
}
