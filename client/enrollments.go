package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/progress"
	"github.com/openschool/campus/core/scorm"
)

type EnrollmentService struct{ c *Client }

type (
	holdRequest struct {
		OnHold bool `json:"on_hold"`
	}

	materialDataRequest struct {
		Data scorm.Data `json:"data"`
	}
)

func enrollmentPath(id string) string {
	return "/enrollments/" + url.PathEscape(id)
}

func materialPath(enrollmentID, materialID string) string {
	return enrollmentPath(enrollmentID) + "/materials/" + url.PathEscape(materialID)
}

func (s *EnrollmentService) Create(ctx context.Context, ne enrollment.NewEnrollment) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := s.c.call(ctx, http.MethodPost, "/enrollments", ne, &enr)
	return enr, err
}

// List returns the enrollments of the authenticated student. The filter only applies to staff.
func (s *EnrollmentService) List(ctx context.Context, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	q := make(url.Values)
	if filter.StudentID != "" {
		q.Set("student_id", filter.StudentID)
	}
	if filter.CourseID != "" {
		q.Set("course_id", filter.CourseID)
	}
	if filter.OnHold != nil {
		q.Set("on_hold", strconv.FormatBool(*filter.OnHold))
	}

	var enrs []enrollment.Enrollment
	req := s.c.newRequest(ctx)
	req.SetQueryParamsFromValues(q).SetResult(&enrs)
	_, err := s.c.send(req, http.MethodGet, "/enrollments")
	return enrs, err
}

func (s *EnrollmentService) Get(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := s.c.get(ctx, enrollmentPath(id), &enr)
	return enr, err
}

func (s *EnrollmentService) SetHold(ctx context.Context, id string, onHold bool) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	err := s.c.call(ctx, http.MethodPut, enrollmentPath(id)+"/hold", holdRequest{OnHold: onHold}, &enr)
	return enr, err
}

func (s *EnrollmentService) Progress(ctx context.Context, id string) (progress.Progress, error) {
	var p progress.Progress
	err := s.c.get(ctx, enrollmentPath(id)+"/progress", &p)
	return p, err
}

func (s *EnrollmentService) MaterialCompletions(ctx context.Context, id string) ([]enrollment.MaterialCompletion, error) {
	var mcs []enrollment.MaterialCompletion
	err := s.c.get(ctx, enrollmentPath(id)+"/material-completions", &mcs)
	return mcs, err
}

func (s *EnrollmentService) CompleteMaterial(ctx context.Context, enrollmentID, materialID string) error {
	return s.c.call(ctx, http.MethodPut, materialPath(enrollmentID, materialID)+"/completion", nil, nil)
}

func (s *EnrollmentService) UncompleteMaterial(ctx context.Context, enrollmentID, materialID string) error {
	return s.c.call(ctx, http.MethodDelete, materialPath(enrollmentID, materialID)+"/completion", nil, nil)
}

// MaterialData returns the cmi data a SCORM session starts with.
func (s *EnrollmentService) MaterialData(ctx context.Context, enrollmentID, materialID string) (enrollment.MaterialData, error) {
	var md enrollment.MaterialData
	err := s.c.get(ctx, materialPath(enrollmentID, materialID)+"/data", &md)
	return md, err
}

func (s *EnrollmentService) UpdateMaterialData(ctx context.Context, enrollmentID, materialID string, data scorm.Data) (enrollment.MaterialData, error) {
	var md enrollment.MaterialData
	err := s.c.call(ctx, http.MethodPut, materialPath(enrollmentID, materialID)+"/data", materialDataRequest{Data: data}, &md)
	return md, err
}
