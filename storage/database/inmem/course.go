package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/openschool/campus/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.courses {
		if existing.Code == c.Code {
			return course.Course{}, course.ErrCodeExists
		}
	}
	c.ID = uuid.NewString()
	repo.db.courses[c.ID] = &c
	return c, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		courses = append(courses, *c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return *c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) letterTaken(ut course.UnitTemplate) bool {
	for _, existing := range repo.db.units {
		if existing.CourseID == ut.CourseID && existing.Letter == ut.Letter && existing.ID != ut.ID {
			return true
		}
	}
	return false
}

func (repo *courseRepository) CreateUnitTemplate(ctx context.Context, ut course.UnitTemplate) (course.UnitTemplate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ut.ID = uuid.NewString()
	if repo.letterTaken(ut) {
		return course.UnitTemplate{}, course.ErrLetterExists
	}
	repo.db.units[ut.ID] = &ut
	return ut, nil
}

func (repo *courseRepository) UpdateUnitTemplate(ctx context.Context, ut course.UnitTemplate) (course.UnitTemplate, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.units[ut.ID]; !ok {
		return course.UnitTemplate{}, course.ErrUnitTemplateNotFound
	}
	if repo.letterTaken(ut) {
		return course.UnitTemplate{}, course.ErrLetterExists
	}
	repo.db.units[ut.ID] = &ut
	return ut, nil
}

func (repo *courseRepository) DeleteUnitTemplate(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.units[id]; !ok {
		return course.ErrUnitTemplateNotFound
	}
	delete(repo.db.units, id)
	return nil
}

func (repo *courseRepository) GetUnitTemplate(ctx context.Context, id string) (course.UnitTemplate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ut, ok := repo.db.units[id]; ok {
		return *ut, nil
	}
	return course.UnitTemplate{}, course.ErrUnitTemplateNotFound
}

func (repo *courseRepository) QueryUnitTemplates(ctx context.Context, courseID string) ([]course.UnitTemplate, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	uts := make([]course.UnitTemplate, 0)
	for _, ut := range repo.db.units {
		if ut.CourseID == courseID {
			uts = append(uts, *ut)
		}
	}
	sort.Slice(uts, func(i, j int) bool {
		if uts[i].Order != uts[j].Order {
			return uts[i].Order < uts[j].Order
		}
		return uts[i].Letter < uts[j].Letter
	})
	return uts, nil
}

func (repo *courseRepository) CreateMaterial(ctx context.Context, m course.Material) (course.Material, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	m.ID = uuid.NewString()
	repo.db.materials[m.ID] = &m
	return m, nil
}

func (repo *courseRepository) GetMaterial(ctx context.Context, id string) (course.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if m, ok := repo.db.materials[id]; ok {
		return *m, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) QueryMaterials(ctx context.Context, courseID string) ([]course.Material, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	materials := make([]course.Material, 0)
	for _, m := range repo.db.materials {
		if m.CourseID == courseID {
			materials = append(materials, *m)
		}
	}
	sort.Slice(materials, func(i, j int) bool {
		if materials[i].UnitLetter != materials[j].UnitLetter {
			return materials[i].UnitLetter < materials[j].UnitLetter
		}
		return materials[i].Order < materials[j].Order
	})
	return materials, nil
}
