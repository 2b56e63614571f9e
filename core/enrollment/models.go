package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/scorm"
)

type PaymentStatus string

const (
	PaymentUnpaid       PaymentStatus = "unpaid"
	PaymentPaid         PaymentStatus = "paid"
	PaymentInstallments PaymentStatus = "installments"
	PaymentRefunded     PaymentStatus = "refunded"
)

type Enrollment struct {
	ID            string        `json:"id"`
	StudentID     string        `json:"student_id"`
	CourseID      string        `json:"course_id"`
	Currency      string        `json:"currency"`
	Cost          float64       `json:"cost"`
	Installment   float64       `json:"installment"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OnHold        bool          `json:"on_hold"`
	CreatedAt     time.Time     `json:"created_at"` // UTC
	UpdatedAt     time.Time     `json:"updated_at"` // UTC
}

// MaterialCompletion records that the student completed a lesson.
type MaterialCompletion struct {
	EnrollmentID string    `json:"enrollment_id"`
	MaterialID   string    `json:"material_id"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// MaterialData is the SCORM cmi state of one material for one enrollment.
type MaterialData struct {
	EnrollmentID string        `json:"enrollment_id"`
	MaterialID   string        `json:"material_id"`
	Version      scorm.Version `json:"version"`
	Data         scorm.Data    `json:"data"`
	UpdatedAt    time.Time     `json:"updated_at"` // UTC
}

// NewEnrollment contains information needed to enroll a student in a course.
type NewEnrollment struct {
	StudentID     string        `json:"student_id" validate:"required"`
	CourseID      string        `json:"course_id" validate:"required"`
	Cost          float64       `json:"cost" validate:"gte=0"`
	Installment   float64       `json:"installment" validate:"gte=0,ltefield=Cost"`
	PaymentStatus PaymentStatus `json:"payment_status" validate:"omitempty,oneof=unpaid paid installments refunded"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.CourseID = core.CleanString(ne.CourseID)
	if ne.PaymentStatus == "" {
		ne.PaymentStatus = PaymentUnpaid
	}
	return validate.Struct(ne)
}

type QueryFilter struct {
	StudentID string `query:"student_id"`
	CourseID  string `query:"course_id"`
	OnHold    *bool  `query:"on_hold"`
}
