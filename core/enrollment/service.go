package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/country"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/progress"
	"github.com/openschool/campus/core/scorm"
	"github.com/openschool/campus/core/user"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("enrollment not found")
	ErrMaterialDataNotFound = core.NewNotFoundError("material data not found")
	ErrExists               = core.NewConflictError("the student is already enrolled in this course")
	ErrOnHold               = core.NewForbiddenError("enrollment is on hold")
	ErrNotScorm             = core.NewConflictError("material is not a SCORM package")
	ErrNotStudent           = errors.New("user is not a student")
	ErrEmbargoed            = errors.New("we are unable to accept students from this country")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)

		// CreateMaterialCompletion is a no-op when the completion already exists.
		CreateMaterialCompletion(ctx context.Context, mc MaterialCompletion) error
		DeleteMaterialCompletion(ctx context.Context, enrollmentID, materialID string) error
		QueryMaterialCompletions(ctx context.Context, enrollmentID string) ([]MaterialCompletion, error)

		GetMaterialData(ctx context.Context, enrollmentID, materialID string) (MaterialData, error)
		// SaveMaterialData inserts or replaces the data.
		SaveMaterialData(ctx context.Context, md MaterialData) (MaterialData, error)
	}

	// UnitCounter counts the units of an enrollment that were submitted or skipped.
	UnitCounter interface {
		CountSubmittedUnits(ctx context.Context, enrollmentID string) (int, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		Get(ctx context.Context, id string) (Enrollment, error)
		List(ctx context.Context, filter QueryFilter) ([]Enrollment, error)
		ListForStudent(ctx context.Context, studentID string) ([]Enrollment, error)
		SetHold(ctx context.Context, enr Enrollment, onHold bool) (Enrollment, error)

		CompleteMaterial(ctx context.Context, enr Enrollment, materialID string) error
		UncompleteMaterial(ctx context.Context, enr Enrollment, materialID string) error
		ListMaterialCompletions(ctx context.Context, enr Enrollment) ([]MaterialCompletion, error)
		GetMaterialData(ctx context.Context, enr Enrollment, materialID string) (MaterialData, error)
		UpdateMaterialData(ctx context.Context, enr Enrollment, materialID string, data scorm.Data) (MaterialData, error)

		Progress(ctx context.Context, enr Enrollment) (progress.Progress, error)
	}

	service struct {
		repo    Repository
		users   user.Service
		courses course.Service
		units   UnitCounter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Service, courses course.Service, units UnitCounter) Service {
	return &service{
		repo:    repo,
		users:   users,
		courses: courses,
		units:   units,
	}
}

// Create enrolls a student, billing in the currency of the student's country.
func (svc *service) Create(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	student, err := svc.users.GetByID(ctx, ne.StudentID)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Enrollment{}, errors.Wrap(err, "getting student")
	}
	if !student.IsStudent() {
		return Enrollment{}, core.NewValidationError(ErrNotStudent, core.FieldError{Field: "student_id", Error: ErrNotStudent.Error()})
	}
	if country.EmbargoedCountry(student.Country) {
		return Enrollment{}, core.NewValidationError(ErrEmbargoed, core.FieldError{Field: "student_id", Error: ErrEmbargoed.Error()})
	}
	if _, err := svc.courses.GetCourse(ctx, ne.CourseID); err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return Enrollment{}, errors.Wrap(err, "getting course")
	}

	now := NowFunc().UTC()
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID:     student.ID,
		CourseID:      ne.CourseID,
		Currency:      country.CurrencyFor(student.Country),
		Cost:          ne.Cost,
		Installment:   ne.Installment,
		PaymentStatus: ne.PaymentStatus,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *service) Get(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *service) List(ctx context.Context, filter QueryFilter) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}

func (svc *service) ListForStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, QueryFilter{StudentID: studentID})
}

func (svc *service) SetHold(ctx context.Context, enr Enrollment, onHold bool) (Enrollment, error) {
	enr.OnHold = onHold
	enr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) CompleteMaterial(ctx context.Context, enr Enrollment, materialID string) error {
	if enr.OnHold {
		return ErrOnHold
	}
	if _, err := svc.material(ctx, enr, materialID); err != nil {
		return err
	}
	return svc.repo.CreateMaterialCompletion(ctx, MaterialCompletion{
		EnrollmentID: enr.ID,
		MaterialID:   materialID,
		CreatedAt:    NowFunc().UTC(),
	})
}

func (svc *service) UncompleteMaterial(ctx context.Context, enr Enrollment, materialID string) error {
	if enr.OnHold {
		return ErrOnHold
	}
	if _, err := svc.material(ctx, enr, materialID); err != nil {
		return err
	}
	return svc.repo.DeleteMaterialCompletion(ctx, enr.ID, materialID)
}

func (svc *service) ListMaterialCompletions(ctx context.Context, enr Enrollment) ([]MaterialCompletion, error) {
	return svc.repo.QueryMaterialCompletions(ctx, enr.ID)
}

// GetMaterialData returns the cmi data to start a SCORM session with: the saved data prepared
// for resuming, or the defaults of a first attempt.
func (svc *service) GetMaterialData(ctx context.Context, enr Enrollment, materialID string) (MaterialData, error) {
	m, err := svc.scormMaterial(ctx, enr, materialID)
	if err != nil {
		return MaterialData{}, err
	}
	version := scormVersion(m)

	md, err := svc.repo.GetMaterialData(ctx, enr.ID, materialID)
	if err == nil {
		md.Data = scorm.Resume(md.Version, md.Data)
		return md, nil
	}
	if errors.Cause(err) != ErrMaterialDataNotFound {
		return MaterialData{}, errors.Wrap(err, "getting material data")
	}

	student, err := svc.users.GetByID(ctx, enr.StudentID)
	if err != nil {
		return MaterialData{}, errors.Wrap(err, "getting student")
	}
	return MaterialData{
		EnrollmentID: enr.ID,
		MaterialID:   materialID,
		Version:      version,
		Data:         scorm.Defaults(version, student.ID, student.Name),
	}, nil
}

// UpdateMaterialData persists the cmi data of a SCORM session and records the material as
// completed once the content reports completion.
func (svc *service) UpdateMaterialData(ctx context.Context, enr Enrollment, materialID string, data scorm.Data) (MaterialData, error) {
	if enr.OnHold {
		return MaterialData{}, ErrOnHold
	}
	m, err := svc.scormMaterial(ctx, enr, materialID)
	if err != nil {
		return MaterialData{}, err
	}

	now := NowFunc().UTC()
	md, err := svc.repo.SaveMaterialData(ctx, MaterialData{
		EnrollmentID: enr.ID,
		MaterialID:   materialID,
		Version:      scormVersion(m),
		Data:         data,
		UpdatedAt:    now,
	})
	if err != nil {
		return MaterialData{}, errors.Wrap(err, "saving material data")
	}

	if scorm.Completed(md.Version, md.Data) {
		err = svc.repo.CreateMaterialCompletion(ctx, MaterialCompletion{
			EnrollmentID: enr.ID,
			MaterialID:   materialID,
			CreatedAt:    now,
		})
		if err != nil {
			return MaterialData{}, errors.Wrap(err, "completing material")
		}
	}
	return md, nil
}

// Progress counts every material of the course as a lesson and every unit template as a unit.
func (svc *service) Progress(ctx context.Context, enr Enrollment) (progress.Progress, error) {
	materials, err := svc.courses.ListMaterials(ctx, enr.CourseID)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "listing materials")
	}
	completions, err := svc.repo.QueryMaterialCompletions(ctx, enr.ID)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "listing material completions")
	}
	uts, err := svc.courses.ListUnitTemplates(ctx, enr.CourseID)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "listing unit templates")
	}
	submitted, err := svc.units.CountSubmittedUnits(ctx, enr.ID)
	if err != nil {
		return progress.Progress{}, errors.Wrap(err, "counting submitted units")
	}

	inCourse := make(map[string]bool, len(materials))
	for _, m := range materials {
		inCourse[m.ID] = true
	}
	var completed int
	for _, mc := range completions {
		if inCourse[mc.MaterialID] {
			completed++
		}
	}
	return progress.New(len(materials), completed, len(uts), submitted), nil
}

// material returns the material when it belongs to the enrolled course.
func (svc *service) material(ctx context.Context, enr Enrollment, materialID string) (course.Material, error) {
	m, err := svc.courses.GetMaterial(ctx, materialID)
	if err != nil {
		return course.Material{}, err
	}
	if m.CourseID != enr.CourseID {
		return course.Material{}, course.ErrMaterialNotFound
	}
	return m, nil
}

func (svc *service) scormMaterial(ctx context.Context, enr Enrollment, materialID string) (course.Material, error) {
	m, err := svc.material(ctx, enr, materialID)
	if err != nil {
		return course.Material{}, err
	}
	if !m.IsScorm() {
		return course.Material{}, ErrNotScorm
	}
	return m, nil
}

func scormVersion(m course.Material) scorm.Version {
	if m.Type == course.MaterialScorm12 {
		return scorm.Version12
	}
	return scorm.Version2004
}
