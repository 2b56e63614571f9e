package submission

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/grading"
)

type (
	File struct {
		ID         string    `json:"id"`
		Filename   string    `json:"filename"`
		MimeType   string    `json:"mime_type"`
		Size       int64     `json:"size"`
		UploadedAt time.Time `json:"uploaded_at"` // UTC
	}

	TextBox struct {
		ID       string `json:"id"`
		Label    string `json:"label"`
		Order    int    `json:"order"`
		Optional bool   `json:"optional"`
		Text     string `json:"text"`
		Notes    string `json:"notes"`
		grading.Marks
	}

	UploadSlot struct {
		ID           string   `json:"id"`
		Label        string   `json:"label"`
		Order        int      `json:"order"`
		Optional     bool     `json:"optional"`
		AllowedTypes []string `json:"allowed_types"`
		File         *File    `json:"file"`
		Notes        string   `json:"notes"`
		grading.Marks
	}

	Part struct {
		ID          string       `json:"id"`
		Title       string       `json:"title"`
		Description string       `json:"description"`
		Order       int          `json:"order"`
		Optional    bool         `json:"optional"`
		TextBoxes   []TextBox    `json:"text_boxes"`
		UploadSlots []UploadSlot `json:"upload_slots"`
		grading.Marks
	}

	Assignment struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Order       int    `json:"order"`
		Optional    bool   `json:"optional"`
		Parts       []Part `json:"parts"`
		grading.Marks
	}

	// Submission is the student's copy of a unit template, carrying their answers and the tutor's marks.
	Submission struct {
		ID             string       `json:"id"`
		EnrollmentID   string       `json:"enrollment_id"`
		UnitTemplateID string       `json:"unit_template_id"`
		UnitLetter     string       `json:"unit_letter"`
		Title          string       `json:"title"`
		Order          int          `json:"order"`
		Optional       bool         `json:"optional"`
		Assignments    []Assignment `json:"assignments"`
		grading.Marks
		Submitted    *time.Time  `json:"submitted"` // UTC
		Skipped      bool        `json:"skipped"`
		Closed       *time.Time  `json:"closed"`   // UTC
		Returned     *time.Time  `json:"returned"` // UTC
		AdminComment string      `json:"admin_comment"`
		TutorID      null.String `json:"tutor_id"`
		CreatedAt    time.Time   `json:"created_at"` // UTC
		UpdatedAt    time.Time   `json:"updated_at"` // UTC
	}
)

// grading tree

func (tb *TextBox) GradingMarks() *grading.Marks    { return &tb.Marks }
func (tb *TextBox) GradingChildren() []grading.Node { return nil }
func (tb *TextBox) IsOptional() bool                { return tb.Optional }
func (tb *TextBox) IsLeaf() bool                    { return true }

func (us *UploadSlot) GradingMarks() *grading.Marks    { return &us.Marks }
func (us *UploadSlot) GradingChildren() []grading.Node { return nil }
func (us *UploadSlot) IsOptional() bool                { return us.Optional }
func (us *UploadSlot) IsLeaf() bool                    { return true }

func (p *Part) GradingMarks() *grading.Marks { return &p.Marks }
func (p *Part) IsOptional() bool             { return p.Optional }

func (p *Part) GradingChildren() []grading.Node {
	nodes := make([]grading.Node, 0, len(p.TextBoxes)+len(p.UploadSlots))
	for i := range p.TextBoxes {
		nodes = append(nodes, &p.TextBoxes[i])
	}
	for i := range p.UploadSlots {
		nodes = append(nodes, &p.UploadSlots[i])
	}
	return nodes
}

func (a *Assignment) GradingMarks() *grading.Marks { return &a.Marks }
func (a *Assignment) IsOptional() bool             { return a.Optional }

func (a *Assignment) GradingChildren() []grading.Node {
	nodes := make([]grading.Node, 0, len(a.Parts))
	for i := range a.Parts {
		nodes = append(nodes, &a.Parts[i])
	}
	return nodes
}

func (s *Submission) GradingMarks() *grading.Marks { return &s.Marks }
func (s *Submission) IsOptional() bool             { return s.Optional }

func (s *Submission) GradingChildren() []grading.Node {
	nodes := make([]grading.Node, 0, len(s.Assignments))
	for i := range s.Assignments {
		nodes = append(nodes, &s.Assignments[i])
	}
	return nodes
}

func (s *Submission) IsSubmitted() bool { return s.Submitted != nil }
func (s *Submission) IsClosed() bool    { return s.Closed != nil }

// Clone returns a deep copy of the submission.
func (s Submission) Clone() Submission {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var c Submission
	if err := json.Unmarshal(b, &c); err != nil {
		panic(err)
	}
	return c
}

func (s *Submission) TextBox(id string) (*TextBox, error) {
	for i := range s.Assignments {
		for j := range s.Assignments[i].Parts {
			p := &s.Assignments[i].Parts[j]
			for k := range p.TextBoxes {
				if p.TextBoxes[k].ID == id {
					return &p.TextBoxes[k], nil
				}
			}
		}
	}
	return nil, ErrTextBoxNotFound
}

func (s *Submission) UploadSlot(id string) (*UploadSlot, error) {
	for i := range s.Assignments {
		for j := range s.Assignments[i].Parts {
			p := &s.Assignments[i].Parts[j]
			for k := range p.UploadSlots {
				if p.UploadSlots[k].ID == id {
					return &p.UploadSlots[k], nil
				}
			}
		}
	}
	return nil, ErrUploadSlotNotFound
}

// Files returns every uploaded file of the submission.
func (s *Submission) Files() []*File {
	var files []*File
	for _, a := range s.Assignments {
		for _, p := range a.Parts {
			for _, us := range p.UploadSlots {
				if us.File != nil {
					files = append(files, us.File)
				}
			}
		}
	}
	return files
}

// Unanswered lists the required inputs the student left empty. Inputs below an optional
// assignment or part are not required.
func (s *Submission) Unanswered() []core.FieldError {
	var flds []core.FieldError
	for _, a := range s.Assignments {
		if a.Optional {
			continue
		}
		for _, p := range a.Parts {
			if p.Optional {
				continue
			}
			for _, tb := range p.TextBoxes {
				if !tb.Optional && strings.TrimSpace(tb.Text) == "" {
					flds = append(flds, core.FieldError{Field: "text_boxes." + tb.ID, Error: core.MsgRequired})
				}
			}
			for _, us := range p.UploadSlots {
				if !us.Optional && us.File == nil {
					flds = append(flds, core.FieldError{Field: "upload_slots." + us.ID, Error: core.MsgRequired})
				}
			}
		}
	}
	return flds
}

// FromTemplate builds an unanswered, unmarked submission from a unit template.
func FromTemplate(enrollmentID string, ut course.UnitTemplate) Submission {
	sub := Submission{
		EnrollmentID:   enrollmentID,
		UnitTemplateID: ut.ID,
		UnitLetter:     ut.Letter,
		Title:          ut.Title,
		Order:          ut.Order,
		Optional:       ut.Optional,
		Assignments:    make([]Assignment, 0, len(ut.Assignments)),
	}
	for _, at := range ut.Assignments {
		a := Assignment{
			ID:          at.ID,
			Title:       at.Title,
			Description: at.Description,
			Order:       at.Order,
			Optional:    at.Optional,
			Parts:       make([]Part, 0, len(at.Parts)),
		}
		for _, pt := range at.Parts {
			p := Part{
				ID:          pt.ID,
				Title:       pt.Title,
				Description: pt.Description,
				Order:       pt.Order,
				Optional:    pt.Optional,
				TextBoxes:   make([]TextBox, 0, len(pt.TextBoxes)),
				UploadSlots: make([]UploadSlot, 0, len(pt.UploadSlots)),
			}
			for _, tbt := range pt.TextBoxes {
				p.TextBoxes = append(p.TextBoxes, TextBox{
					ID:       tbt.ID,
					Label:    tbt.Label,
					Order:    tbt.Order,
					Optional: tbt.Optional,
					Marks:    grading.Marks{Points: tbt.Points},
				})
			}
			for _, ust := range pt.UploadSlots {
				p.UploadSlots = append(p.UploadSlots, UploadSlot{
					ID:           ust.ID,
					Label:        ust.Label,
					Order:        ust.Order,
					Optional:     ust.Optional,
					AllowedTypes: append([]string(nil), ust.AllowedTypes...),
					Marks:        grading.Marks{Points: ust.Points},
				})
			}
			a.Parts = append(a.Parts, p)
		}
		sub.Assignments = append(sub.Assignments, a)
	}
	grading.Recompute(&sub)
	return sub
}

// MarkPatch changes the marking of one leaf. Absent fields are left untouched; null clears.
type MarkPatch struct {
	Mark         core.PatchField[float64] `json:"mark"`
	MarkOverride core.PatchField[float64] `json:"mark_override"`
	Notes        core.PatchField[string]  `json:"notes"`
}

// MarshalJSON emits present fields only.
func (mp MarkPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, 3)
	if mp.Mark.Present {
		m["mark"] = mp.Mark
	}
	if mp.MarkOverride.Present {
		m["mark_override"] = mp.MarkOverride
	}
	if mp.Notes.Present {
		m["notes"] = mp.Notes
	}
	return json.Marshal(m)
}

// apply validates and applies the patch to the marks and notes of a leaf.
func (mp MarkPatch) apply(marks *grading.Marks, notes *string) error {
	var flds []core.FieldError
	if v, ok := mp.Mark.Get(); ok {
		if err := grading.ValidateMark(v, marks.Points); err != nil {
			flds = append(flds, core.FieldError{Field: "mark", Error: err.Error()})
		}
	}
	if v, ok := mp.MarkOverride.Get(); ok {
		if err := grading.ValidateMark(v, marks.Points); err != nil {
			flds = append(flds, core.FieldError{Field: "mark_override", Error: err.Error()})
		}
	}
	if v, ok := mp.Notes.Get(); ok && v != nil {
		if msg := core.MaxBytesMessage(*v, core.LongTextMaxBytes); msg != "" {
			flds = append(flds, core.FieldError{Field: "notes", Error: msg})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}

	if v, ok := mp.Mark.Get(); ok {
		marks.Mark = v
	}
	if v, ok := mp.MarkOverride.Get(); ok {
		marks.MarkOverride = v
	}
	if v, ok := mp.Notes.Get(); ok {
		*notes = ""
		if v != nil {
			*notes = *v
		}
	}
	return nil
}

// MarkTextBox applies mp to one text box and re-derives every aggregate of the unit.
func (s *Submission) MarkTextBox(textBoxID string, mp MarkPatch) error {
	tb, err := s.TextBox(textBoxID)
	if err != nil {
		return err
	}
	if err := mp.apply(&tb.Marks, &tb.Notes); err != nil {
		return err
	}
	grading.Recompute(s)
	return nil
}

// MarkUploadSlot applies mp to one upload slot and re-derives every aggregate of the unit.
func (s *Submission) MarkUploadSlot(slotID string, mp MarkPatch) error {
	slot, err := s.UploadSlot(slotID)
	if err != nil {
		return err
	}
	if err := mp.apply(&slot.Marks, &slot.Notes); err != nil {
		return err
	}
	grading.Recompute(s)
	return nil
}

type QueryFilter struct {
	EnrollmentID string `query:"enrollment_id"`
	Submitted    *bool  `query:"submitted"`
	Closed       *bool  `query:"closed"`
}

// Upload is a file sent by a student for an upload slot.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}
