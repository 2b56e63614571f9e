package submission

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/grading"
	"github.com/openschool/campus/core/user"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("unit not found")
	ErrTextBoxNotFound    = core.NewNotFoundError("text box not found")
	ErrUploadSlotNotFound = core.NewNotFoundError("upload slot not found")
	ErrFileNotFound       = core.NewNotFoundError("file not found")
	ErrUnitInProgress     = core.NewConflictError("the current unit must be submitted first")
	ErrNoUnitsLeft        = core.NewConflictError("all units have been started")
	ErrSubmitted          = core.NewConflictError("unit has already been submitted")
	ErrNotSubmitted       = core.NewConflictError("unit has not been submitted")
	ErrSkipped            = core.NewConflictError("unit was skipped")
	ErrClosed             = core.NewConflictError("unit is closed")
	ErrNotOptional        = core.NewConflictError("only optional units can be skipped")
	ErrFileTooLarge       = errors.New("file is too large")
	ErrFileType           = errors.New("file type is not allowed")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// QuerySubmissions returns submissions sorted by order, then unit letter.
		QuerySubmissions(ctx context.Context, filter QueryFilter) ([]Submission, error)
		// Modify locks the submission, applies fn and stores the result. Nothing is stored when fn fails.
		Modify(ctx context.Context, id string, fn func(sub *Submission) error) (Submission, error)
		// CountSubmittedUnits counts the submitted (including skipped) units of an enrollment.
		CountSubmittedUnits(ctx context.Context, enrollmentID string) (int, error)
	}

	// FileStore keeps the content of uploaded files, keyed by File.ID.
	FileStore interface {
		Save(ctx context.Context, key string, r io.Reader) error
		Open(ctx context.Context, key string) (io.ReadCloser, error)
		Delete(ctx context.Context, key string) error
	}

	Service interface {
		// student
		Initialize(ctx context.Context, enr enrollment.Enrollment) (Submission, error)
		Get(ctx context.Context, id string) (Submission, error)
		List(ctx context.Context, filter QueryFilter) ([]Submission, error)
		SaveTextBox(ctx context.Context, id, textBoxID, text string) (Submission, error)
		UploadFile(ctx context.Context, id, slotID string, up Upload) (Submission, error)
		OpenFile(ctx context.Context, sub Submission, slotID string) (File, io.ReadCloser, error)
		DeleteFile(ctx context.Context, id, slotID string) (Submission, error)
		Submit(ctx context.Context, id string) (Submission, error)
		Skip(ctx context.Context, id string) (Submission, error)

		// tutor
		SetTextBoxMark(ctx context.Context, id, textBoxID string, mp MarkPatch) (Submission, error)
		SetUploadSlotMark(ctx context.Context, id, slotID string, mp MarkPatch) (Submission, error)
		Close(ctx context.Context, id string, tutor user.User) (Submission, error)
		Return(ctx context.Context, id, adminComment string) (Submission, error)
	}

	service struct {
		conf        *core.Config
		logger      core.Logger
		repo        Repository
		enrollments enrollment.Service
		courses     course.Service
		users       user.Service
		files       FileStore
		mailSvc     core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(
	conf *core.Config,
	logger core.Logger,
	repo Repository,
	enrollments enrollment.Service,
	courses course.Service,
	users user.Service,
	files FileStore,
	mailSvc core.EmailService,
) Service {
	return &service{
		conf:        conf,
		logger:      logger,
		repo:        repo,
		enrollments: enrollments,
		courses:     courses,
		users:       users,
		files:       files,
		mailSvc:     mailSvc,
	}
}

// Initialize starts the next unit of the course, in template order. A unit may only be started
// once every previous one was submitted or skipped.
func (svc *service) Initialize(ctx context.Context, enr enrollment.Enrollment) (Submission, error) {
	if enr.OnHold {
		return Submission{}, enrollment.ErrOnHold
	}
	subs, err := svc.repo.QuerySubmissions(ctx, QueryFilter{EnrollmentID: enr.ID})
	if err != nil {
		return Submission{}, errors.Wrap(err, "querying submissions")
	}
	started := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if !sub.IsSubmitted() {
			return Submission{}, ErrUnitInProgress
		}
		started[sub.UnitTemplateID] = true
	}

	uts, err := svc.courses.ListUnitTemplates(ctx, enr.CourseID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "listing unit templates")
	}
	for _, ut := range uts {
		if started[ut.ID] {
			continue
		}
		now := NowFunc().UTC()
		sub := FromTemplate(enr.ID, ut)
		sub.CreatedAt = now
		sub.UpdatedAt = now
		return svc.repo.CreateSubmission(ctx, sub)
	}
	return Submission{}, ErrNoUnitsLeft
}

func (svc *service) Get(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *service) List(ctx context.Context, filter QueryFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

func (svc *service) SaveTextBox(ctx context.Context, id, textBoxID, text string) (Submission, error) {
	if msg := core.MaxBytesMessage(text, core.LongTextMaxBytes); msg != "" {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "text", Error: msg})
	}
	return svc.studentModify(ctx, id, func(sub *Submission) error {
		tb, err := sub.TextBox(textBoxID)
		if err != nil {
			return err
		}
		tb.Text = text
		return nil
	})
}

// UploadFile stores the file of an upload slot, replacing the previous one.
func (svc *service) UploadFile(ctx context.Context, id, slotID string, up Upload) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	slot, err := sub.UploadSlot(slotID)
	if err != nil {
		return Submission{}, err
	}

	maxSize := svc.conf.Server.MaxUploadSize
	if up.Size > maxSize {
		return Submission{}, fileError(ErrFileTooLarge)
	}
	content, err := io.ReadAll(io.LimitReader(up.Content, maxSize+1))
	if err != nil {
		return Submission{}, errors.Wrap(err, "reading upload")
	}
	if int64(len(content)) > maxSize {
		return Submission{}, fileError(ErrFileTooLarge)
	}
	mtype := mimetype.Detect(content)
	if !Allowed(mtype, slot.AllowedTypes) {
		return Submission{}, fileError(ErrFileType)
	}

	file := &File{
		ID:         uuid.NewString(),
		Filename:   up.Filename,
		MimeType:   mtype.String(),
		Size:       int64(len(content)),
		UploadedAt: NowFunc().UTC(),
	}
	if err := svc.files.Save(ctx, file.ID, bytes.NewReader(content)); err != nil {
		return Submission{}, errors.Wrap(err, "saving upload")
	}

	var replaced *File
	sub, err = svc.studentModify(ctx, id, func(sub *Submission) error {
		slot, err := sub.UploadSlot(slotID)
		if err != nil {
			return err
		}
		replaced = slot.File
		slot.File = file
		return nil
	})
	if err != nil {
		svc.deleteFile(ctx, file)
		return Submission{}, err
	}
	svc.deleteFile(ctx, replaced)
	return sub, nil
}

func (svc *service) OpenFile(ctx context.Context, sub Submission, slotID string) (File, io.ReadCloser, error) {
	slot, err := sub.UploadSlot(slotID)
	if err != nil {
		return File{}, nil, err
	}
	if slot.File == nil {
		return File{}, nil, ErrFileNotFound
	}
	rc, err := svc.files.Open(ctx, slot.File.ID)
	if err != nil {
		return File{}, nil, errors.Wrap(err, "opening upload")
	}
	return *slot.File, rc, nil
}

func (svc *service) DeleteFile(ctx context.Context, id, slotID string) (Submission, error) {
	var removed *File
	sub, err := svc.studentModify(ctx, id, func(sub *Submission) error {
		slot, err := sub.UploadSlot(slotID)
		if err != nil {
			return err
		}
		if slot.File == nil {
			return ErrFileNotFound
		}
		removed = slot.File
		slot.File = nil
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	svc.deleteFile(ctx, removed)
	return sub, nil
}

// Submit hands the unit in for marking once every required input is answered.
func (svc *service) Submit(ctx context.Context, id string) (Submission, error) {
	return svc.studentModify(ctx, id, func(sub *Submission) error {
		if flds := sub.Unanswered(); len(flds) > 0 {
			return core.NewValidationError(errors.New("all required items must be answered"), flds...)
		}
		now := NowFunc().UTC()
		sub.Submitted = &now
		return nil
	})
}

// Skip hands an optional unit in without answers.
func (svc *service) Skip(ctx context.Context, id string) (Submission, error) {
	return svc.studentModify(ctx, id, func(sub *Submission) error {
		if !sub.Optional {
			return ErrNotOptional
		}
		now := NowFunc().UTC()
		sub.Submitted = &now
		sub.Skipped = true
		return nil
	})
}

func (svc *service) SetTextBoxMark(ctx context.Context, id, textBoxID string, mp MarkPatch) (Submission, error) {
	return svc.tutorModify(ctx, id, func(sub *Submission) error {
		return sub.MarkTextBox(textBoxID, mp)
	})
}

func (svc *service) SetUploadSlotMark(ctx context.Context, id, slotID string, mp MarkPatch) (Submission, error) {
	return svc.tutorModify(ctx, id, func(sub *Submission) error {
		return sub.MarkUploadSlot(slotID, mp)
	})
}

// Close finishes the marking of a unit and notifies the student.
func (svc *service) Close(ctx context.Context, id string, tutor user.User) (Submission, error) {
	sub, err := svc.tutorModify(ctx, id, func(sub *Submission) error {
		if !grading.Complete(sub) {
			return core.NewValidationError(grading.ErrIncompleteMarking)
		}
		now := NowFunc().UTC()
		sub.Closed = &now
		sub.TutorID = null.StringFrom(tutor.ID)
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	svc.notify(ctx, sub, "unit_closed", fmt.Sprintf("Unit %s has been marked", sub.UnitLetter))
	return sub, nil
}

// Return sends a submitted unit back to the student for changes.
func (svc *service) Return(ctx context.Context, id, adminComment string) (Submission, error) {
	adminComment = core.CleanString(adminComment)
	if msg := core.TextMessage(adminComment, core.LongTextMaxBytes, true); msg != "" {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "admin_comment", Error: msg})
	}
	sub, err := svc.modify(ctx, id, func(sub *Submission) error {
		if !sub.IsSubmitted() {
			return ErrNotSubmitted
		}
		now := NowFunc().UTC()
		sub.Submitted = nil
		sub.Skipped = false
		sub.Closed = nil
		sub.Returned = &now
		sub.AdminComment = adminComment
		return nil
	})
	if err != nil {
		return Submission{}, err
	}
	svc.notify(ctx, sub, "unit_returned", fmt.Sprintf("Unit %s has been returned", sub.UnitLetter))
	return sub, nil
}

// modify applies fn to the submission unless its enrollment is on hold.
func (svc *service) modify(ctx context.Context, id string, fn func(sub *Submission) error) (Submission, error) {
	return svc.repo.Modify(ctx, id, func(sub *Submission) error {
		enr, err := svc.enrollments.Get(ctx, sub.EnrollmentID)
		if err != nil {
			return errors.Wrap(err, "getting enrollment")
		}
		if enr.OnHold {
			return enrollment.ErrOnHold
		}
		if err := fn(sub); err != nil {
			return err
		}
		sub.UpdatedAt = NowFunc().UTC()
		return nil
	})
}

func (svc *service) studentModify(ctx context.Context, id string, fn func(sub *Submission) error) (Submission, error) {
	return svc.modify(ctx, id, func(sub *Submission) error {
		if sub.IsSubmitted() {
			return ErrSubmitted
		}
		return fn(sub)
	})
}

// tutorModify re-derives every aggregate mark after fn.
func (svc *service) tutorModify(ctx context.Context, id string, fn func(sub *Submission) error) (Submission, error) {
	return svc.modify(ctx, id, func(sub *Submission) error {
		switch {
		case !sub.IsSubmitted():
			return ErrNotSubmitted
		case sub.Skipped:
			return ErrSkipped
		case sub.IsClosed():
			return ErrClosed
		}
		if err := fn(sub); err != nil {
			return err
		}
		grading.Recompute(sub)
		return nil
	})
}

func (svc *service) deleteFile(ctx context.Context, f *File) {
	if f == nil {
		return
	}
	if err := svc.files.Delete(ctx, f.ID); err != nil {
		svc.logger.Warn("deleting upload "+f.ID, err)
	}
}

// notify emails the student of the submission. Failures are logged: the unit has already changed.
func (svc *service) notify(ctx context.Context, sub Submission, tmpl, subject string) {
	enr, err := svc.enrollments.Get(ctx, sub.EnrollmentID)
	if err != nil {
		svc.logger.Error("notify: getting enrollment", err)
		return
	}
	student, err := svc.users.GetByID(ctx, enr.StudentID)
	if err != nil {
		svc.logger.Error("notify: getting student", err)
		return
	}
	crs, err := svc.courses.GetCourse(ctx, enr.CourseID)
	if err != nil {
		svc.logger.Error("notify: getting course", err)
		return
	}
	if student.Email == "" {
		return
	}

	data := map[string]interface{}{
		"UnitLetter":   sub.UnitLetter,
		"Title":        sub.Title,
		"CourseName":   crs.Name,
		"Points":       sub.Points,
		"EnrollmentID": enr.ID,
		"AdminComment": sub.AdminComment,
	}
	if eff := sub.Effective(); eff != nil {
		data["Mark"] = *eff
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

func fileError(err error) error {
	return core.NewValidationError(err, core.FieldError{Field: "file", Error: err.Error()})
}

// Allowed reports whether a sniffed MIME type matches one of the upload types of a slot.
func Allowed(mtype *mimetype.MIME, allowedTypes []string) bool {
	for _, t := range allowedTypes {
		for m := mtype; m != nil; m = m.Parent() {
			if matchesType(m.String(), t) {
				return true
			}
		}
	}
	return false
}

func matchesType(mime, uploadType string) bool {
	mime = strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	switch uploadType {
	case course.UploadImage:
		return strings.HasPrefix(mime, "image/")
	case course.UploadAudio:
		return strings.HasPrefix(mime, "audio/")
	case course.UploadVideo:
		return strings.HasPrefix(mime, "video/")
	case course.UploadPDF:
		return mime == "application/pdf"
	case course.UploadDocument:
		switch mime {
		case "application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/vnd.oasis.opendocument.text",
			"application/rtf", "text/rtf", "text/plain":
			return true
		}
	}
	return false
}
