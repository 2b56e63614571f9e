package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/openschool/campus/core/course"
)

type CourseService struct{ c *Client }

func (s *CourseService) List(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	err := s.c.get(ctx, "/courses", &courses)
	return courses, err
}

func (s *CourseService) Get(ctx context.Context, id string) (course.Course, error) {
	var crs course.Course
	err := s.c.get(ctx, "/courses/"+url.PathEscape(id), &crs)
	return crs, err
}

func (s *CourseService) Create(ctx context.Context, nc course.NewCourse) (course.Course, error) {
	var crs course.Course
	err := s.c.call(ctx, http.MethodPost, "/courses", nc, &crs)
	return crs, err
}

func (s *CourseService) ListUnitTemplates(ctx context.Context, courseID string) ([]course.UnitTemplate, error) {
	var uts []course.UnitTemplate
	err := s.c.get(ctx, "/courses/"+url.PathEscape(courseID)+"/unit-templates", &uts)
	return uts, err
}

func (s *CourseService) GetUnitTemplate(ctx context.Context, id string) (course.UnitTemplate, error) {
	var ut course.UnitTemplate
	err := s.c.get(ctx, "/unit-templates/"+url.PathEscape(id), &ut)
	return ut, err
}

func (s *CourseService) CreateUnitTemplate(ctx context.Context, courseID string, in course.UnitTemplateInput) (course.UnitTemplate, error) {
	var ut course.UnitTemplate
	err := s.c.call(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/unit-templates", in, &ut)
	return ut, err
}

func (s *CourseService) UpdateUnitTemplate(ctx context.Context, id string, in course.UnitTemplateInput) (course.UnitTemplate, error) {
	var ut course.UnitTemplate
	err := s.c.call(ctx, http.MethodPut, "/unit-templates/"+url.PathEscape(id), in, &ut)
	return ut, err
}

func (s *CourseService) DeleteUnitTemplate(ctx context.Context, id string) error {
	return s.c.call(ctx, http.MethodDelete, "/unit-templates/"+url.PathEscape(id), nil, nil)
}

func (s *CourseService) ListMaterials(ctx context.Context, courseID string) ([]course.Material, error) {
	var materials []course.Material
	err := s.c.get(ctx, "/courses/"+url.PathEscape(courseID)+"/materials", &materials)
	return materials, err
}

func (s *CourseService) CreateMaterial(ctx context.Context, courseID string, nm course.NewMaterial) (course.Material, error) {
	var m course.Material
	err := s.c.call(ctx, http.MethodPost, "/courses/"+url.PathEscape(courseID)+"/materials", nm, &m)
	return m, err
}
