package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/openschool/campus/core/enrollment"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db.enrollment}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.enrollments {
		if existing.StudentID == enr.StudentID && existing.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrExists
		}
	}
	enr.ID = uuid.NewString()
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if filter.StudentID != "" && enr.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if filter.OnHold != nil && enr.OnHold != *filter.OnHold {
			continue
		}
		enrs = append(enrs, *enr)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) CreateMaterialCompletion(ctx context.Context, mc enrollment.MaterialCompletion) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := [2]string{mc.EnrollmentID, mc.MaterialID}
	if _, ok := repo.db.completions[key]; !ok {
		repo.db.completions[key] = mc
	}
	return nil
}

func (repo *enrollmentRepository) DeleteMaterialCompletion(ctx context.Context, enrollmentID, materialID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	delete(repo.db.completions, [2]string{enrollmentID, materialID})
	return nil
}

func (repo *enrollmentRepository) QueryMaterialCompletions(ctx context.Context, enrollmentID string) ([]enrollment.MaterialCompletion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	mcs := make([]enrollment.MaterialCompletion, 0)
	for key, mc := range repo.db.completions {
		if key[0] == enrollmentID {
			mcs = append(mcs, mc)
		}
	}
	sort.Slice(mcs, func(i, j int) bool { return mcs[i].CreatedAt.Before(mcs[j].CreatedAt) })
	return mcs, nil
}

func (repo *enrollmentRepository) GetMaterialData(ctx context.Context, enrollmentID, materialID string) (enrollment.MaterialData, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	md, ok := repo.db.data[[2]string{enrollmentID, materialID}]
	if !ok {
		return enrollment.MaterialData{}, enrollment.ErrMaterialDataNotFound
	}
	md.Data = md.Data.Clone()
	return md, nil
}

func (repo *enrollmentRepository) SaveMaterialData(ctx context.Context, md enrollment.MaterialData) (enrollment.MaterialData, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := md
	stored.Data = md.Data.Clone()
	repo.db.data[[2]string{md.EnrollmentID, md.MaterialID}] = stored
	return md, nil
}
