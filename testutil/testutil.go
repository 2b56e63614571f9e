// Package testutil wires the core services on top of the in-memory repositories for tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
	emailsvc "github.com/openschool/campus/services/email"
	logsvc "github.com/openschool/campus/services/logger"
	inmemdb "github.com/openschool/campus/storage/database/inmem"
)

const Password = "Secr3t!pass"

var initOnce sync.Once

type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Files      *MemFileStore
	Provider   *FakeProvider

	UserRepo    user.Repository
	Users       user.Service
	Courses     course.Service
	Enrollments enrollment.Service
	Submissions submission.Service
	Payments    payment.Service
}

func NewLogger() core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), core.NewTestConfig())
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// NewEnv returns services backed by a fresh in-memory database.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := NewLogger()
	initOnce.Do(func() {
		core.ParseEmailTemplates(conf, logger)
	})
	validate, translator := NewValidator()

	db := inmemdb.Open()
	subRepo := inmemdb.NewSubmissionRepository(db)

	env := &Env{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		Files:      NewMemFileStore(),
		Provider:   &FakeProvider{},
		UserRepo:   inmemdb.NewUserRepository(db),
	}
	env.Users = user.NewService(conf, env.UserRepo, env.Mail)
	env.Courses = course.NewService(inmemdb.NewCourseRepository(db))
	env.Enrollments = enrollment.NewService(inmemdb.NewEnrollmentRepository(db), env.Users, env.Courses, subRepo)
	env.Submissions = submission.NewService(conf, logger, subRepo, env.Enrollments, env.Courses, env.Users, env.Files, env.Mail)
	env.Payments = payment.NewService(inmemdb.NewPaymentRepository(db), env.Provider, env.Enrollments)
	return env
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// Student creates an active student living in country.
func (env *Env) Student(t *testing.T, uname, country string) user.User {
	t.Helper()

	usr := CreateUser(t, env.UserRepo, "Student "+uname, uname, uname+"@example.com", Password, user.StudentRoles, true)
	usr.Country = country
	usr, err := env.UserRepo.UpdateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("updating student: %v", err)
	}
	return usr
}

func (env *Env) Tutor(t *testing.T, uname string) user.User {
	t.Helper()
	return CreateUser(t, env.UserRepo, "Tutor "+uname, uname, uname+"@example.com", Password, user.TutorRoles, true)
}

func (env *Env) Admin(t *testing.T, uname string) user.User {
	t.Helper()
	return CreateUser(t, env.UserRepo, "Admin "+uname, uname, uname+"@example.com", Password, []string{user.RoleAdminOwner}, true)
}

// Fixture is a course with two units (A, then optional B) and one lesson and one SCORM material.
type Fixture struct {
	Course     course.Course
	UnitA      course.UnitTemplate
	UnitB      course.UnitTemplate
	Lesson     course.Material
	Scorm      course.Material
	Student    user.User
	Tutor      user.User
	Enrollment enrollment.Enrollment
}

// UnitAInput has one assignment with a required text box worth 10 and an optional PDF slot worth 5.
func UnitAInput() course.UnitTemplateInput {
	return course.UnitTemplateInput{
		Letter: "A",
		Order:  1,
		Title:  "Introduction",
		Assignments: []course.AssignmentTemplate{{
			Title: "Assignment 1",
			Order: 1,
			Parts: []course.PartTemplate{{
				Title:       "Part 1",
				Order:       1,
				TextBoxes:   []course.TextBoxTemplate{{Label: "Describe", Points: 10, Order: 1}},
				UploadSlots: []course.UploadSlotTemplate{{Label: "Portfolio", Points: 5, Order: 2, Optional: true, AllowedTypes: []string{course.UploadPDF, course.UploadImage}}},
			}},
		}},
	}
}

func UnitBInput() course.UnitTemplateInput {
	return course.UnitTemplateInput{
		Letter:   "B",
		Order:    2,
		Title:    "Going further",
		Optional: true,
		Assignments: []course.AssignmentTemplate{{
			Title: "Assignment 1",
			Order: 1,
			Parts: []course.PartTemplate{{
				Title:     "Part 1",
				Order:     1,
				TextBoxes: []course.TextBoxTemplate{{Label: "Reflect", Points: 4, Order: 1}},
			}},
		}},
	}
}

// NewFixture creates the fixture course and enrolls a Canadian student in it.
func (env *Env) NewFixture(t *testing.T) Fixture {
	t.Helper()
	ctx := context.Background()

	var (
		f   Fixture
		err error
	)
	f.Course, err = env.Courses.CreateCourse(ctx, course.NewCourse{Code: "DSN101", Name: "Interior Design"})
	must(t, err)
	f.UnitA, err = env.Courses.CreateUnitTemplate(ctx, f.Course.ID, UnitAInput())
	must(t, err)
	f.UnitB, err = env.Courses.CreateUnitTemplate(ctx, f.Course.ID, UnitBInput())
	must(t, err)
	f.Lesson, err = env.Courses.CreateMaterial(ctx, f.Course.ID, course.NewMaterial{UnitLetter: "A", Type: course.MaterialLesson, Title: "Colour theory", Order: 1})
	must(t, err)
	f.Scorm, err = env.Courses.CreateMaterial(ctx, f.Course.ID, course.NewMaterial{UnitLetter: "A", Type: course.MaterialScorm2004, Title: "Lighting", Order: 2})
	must(t, err)

	f.Student = env.Student(t, "student1", "CA")
	f.Tutor = env.Tutor(t, "tutor01")
	f.Enrollment, err = env.Enrollments.Create(ctx, enrollment.NewEnrollment{
		StudentID:     f.Student.ID,
		CourseID:      f.Course.ID,
		Cost:          1200,
		PaymentStatus: enrollment.PaymentPaid,
	})
	must(t, err)
	return f
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
}

// MemFileStore keeps uploads in memory.
type MemFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ submission.FileStore = (*MemFileStore)(nil)

func NewMemFileStore() *MemFileStore {
	return &MemFileStore{files: make(map[string][]byte)}
}

func (s *MemFileStore) Save(ctx context.Context, key string, r io.Reader) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.files[key] = content
	s.mu.Unlock()
	return nil
}

func (s *MemFileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[key]
	if !ok {
		return nil, submission.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (s *MemFileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.files, key)
	s.mu.Unlock()
	return nil
}

func (s *MemFileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// FakeProvider vaults every token it is given, or fails with Err.
type FakeProvider struct {
	mu        sync.Mutex
	Err       error
	Customers []payment.Customer
}

var _ payment.Provider = (*FakeProvider)(nil)

func (p *FakeProvider) AddCard(ctx context.Context, customer payment.Customer, singleUseToken string) (payment.Card, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Err != nil {
		return payment.Card{}, p.Err
	}
	p.Customers = append(p.Customers, customer)
	profileID := customer.ProfileID
	if profileID == "" {
		profileID = "profile-" + customer.MerchantRefNum
	}
	return payment.Card{
		ProfileID:    profileID,
		CardID:       "card-" + singleUseToken,
		PaymentToken: "pt-" + singleUseToken,
		CardType:     "VI",
		LastDigits:   "1111",
		ExpiryMonth:  12,
		ExpiryYear:   2030,
	}, nil
}
