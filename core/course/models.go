package course

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/openschool/campus/core"
)

type MaterialType string

const (
	MaterialLesson    MaterialType = "lesson"
	MaterialScorm12   MaterialType = "scorm12"
	MaterialScorm2004 MaterialType = "scorm2004"
	MaterialVideo     MaterialType = "video"
)

// Upload types accepted by an upload slot.
const (
	UploadImage    = "image"
	UploadPDF      = "pdf"
	UploadDocument = "document"
	UploadAudio    = "audio"
	UploadVideo    = "video"
)

type Course struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type (
	UnitTemplate struct {
		ID          string               `json:"id"`
		CourseID    string               `json:"course_id"`
		Letter      string               `json:"letter"`
		Order       int                  `json:"order"`
		Title       string               `json:"title"`
		Description string               `json:"description"`
		Optional    bool                 `json:"optional"`
		Assignments []AssignmentTemplate `json:"assignments"`
		CreatedAt   time.Time            `json:"created_at"` // UTC
		UpdatedAt   time.Time            `json:"updated_at"` // UTC
	}

	AssignmentTemplate struct {
		ID          string         `json:"id"`
		Title       string         `json:"title" validate:"required,bytemax=191"`
		Description string         `json:"description" validate:"bytemax=65535"`
		Order       int            `json:"order" validate:"order"`
		Optional    bool           `json:"optional"`
		Parts       []PartTemplate `json:"parts" validate:"dive"`
	}

	PartTemplate struct {
		ID          string               `json:"id"`
		Title       string               `json:"title" validate:"required,bytemax=191"`
		Description string               `json:"description" validate:"bytemax=65535"`
		Order       int                  `json:"order" validate:"order"`
		Optional    bool                 `json:"optional"`
		TextBoxes   []TextBoxTemplate    `json:"text_boxes" validate:"dive"`
		UploadSlots []UploadSlotTemplate `json:"upload_slots" validate:"dive"`
	}

	TextBoxTemplate struct {
		ID       string  `json:"id"`
		Label    string  `json:"label" validate:"bytemax=191"`
		Points   float64 `json:"points" validate:"gte=0"`
		Optional bool    `json:"optional"`
		Order    int     `json:"order" validate:"order"`
	}

	UploadSlotTemplate struct {
		ID           string   `json:"id"`
		Label        string   `json:"label" validate:"bytemax=191"`
		Points       float64  `json:"points" validate:"gte=0"`
		Optional     bool     `json:"optional"`
		Order        int      `json:"order" validate:"order"`
		AllowedTypes []string `json:"allowed_types" validate:"required,dive,oneof=image pdf document audio video"`
	}
)

// Points is the sum of the points of every leaf of the template.
func (ut UnitTemplate) Points() float64 {
	var sum float64
	for _, a := range ut.Assignments {
		for _, p := range a.Parts {
			for _, tb := range p.TextBoxes {
				sum += tb.Points
			}
			for _, us := range p.UploadSlots {
				sum += us.Points
			}
		}
	}
	return sum
}

// assignIDs gives every node of the tree that has none a fresh identifier.
func (ut *UnitTemplate) assignIDs() {
	for i := range ut.Assignments {
		a := &ut.Assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		for j := range a.Parts {
			p := &a.Parts[j]
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			for k := range p.TextBoxes {
				if p.TextBoxes[k].ID == "" {
					p.TextBoxes[k].ID = uuid.NewString()
				}
			}
			for k := range p.UploadSlots {
				if p.UploadSlots[k].ID == "" {
					p.UploadSlots[k].ID = uuid.NewString()
				}
			}
		}
	}
}

type Material struct {
	ID         string       `json:"id"`
	CourseID   string       `json:"course_id"`
	UnitLetter string       `json:"unit_letter"`
	Type       MaterialType `json:"type"`
	Title      string       `json:"title"`
	Order      int          `json:"order"`
	URL        string       `json:"url"`
	CreatedAt  time.Time    `json:"created_at"` // UTC
}

// IsScorm reports whether the material is a SCORM package tracked through cmi data.
func (m Material) IsScorm() bool {
	return m.Type == MaterialScorm12 || m.Type == MaterialScorm2004
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code        string `json:"code" validate:"required,bytemax=191,alphanum_"`
	Name        string `json:"name" validate:"required,bytemax=191"`
	Description string `json:"description" validate:"bytemax=65535"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = strings.ToUpper(core.CleanString(nc.Code))
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UnitTemplateInput is the admin form of a unit template, used to create and update one.
type UnitTemplateInput struct {
	Letter      string               `json:"letter" validate:"unitletter"`
	Order       int                  `json:"order" validate:"order"`
	Title       string               `json:"title" validate:"required,bytemax=191"`
	Description string               `json:"description" validate:"bytemax=65535"`
	Optional    bool                 `json:"optional"`
	Assignments []AssignmentTemplate `json:"assignments" validate:"dive"`
}

func (in *UnitTemplateInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Description = core.CleanString(in.Description)
	in.Letter = core.CleanString(in.Letter)
	if err := validate.Struct(in); err != nil {
		return err
	}
	in.Letter = core.CleanUnitLetter(in.Letter)
	return nil
}

// NewMaterial contains information needed to attach a Material to a course.
type NewMaterial struct {
	UnitLetter string       `json:"unit_letter" validate:"omitempty,unitletter"`
	Type       MaterialType `json:"type" validate:"required,oneof=lesson scorm12 scorm2004 video"`
	Title      string       `json:"title" validate:"required,bytemax=191"`
	Order      int          `json:"order" validate:"order"`
	URL        string       `json:"url" validate:"omitempty,url,bytemax=191"`
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.URL = core.CleanString(nm.URL)
	if err := validate.Struct(nm); err != nil {
		return err
	}
	nm.UnitLetter = core.CleanUnitLetter(nm.UnitLetter)
	return nil
}
