// Package scheduler runs the periodic background jobs of the API process.
package scheduler

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
)

const jobTimeout = 4 * time.Minute

type Scheduler struct {
	cron        *cron.Cron
	logger      core.Logger
	users       user.Service
	submissions submission.Service
	mailSvc     core.EmailService
}

// New registers the jobs whose cron spec is configured. Nothing runs until Start.
func New(
	conf *core.Config,
	logger core.Logger,
	users user.Service,
	submissions submission.Service,
	mailSvc core.EmailService,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		logger:      logger,
		users:       users,
		submissions: submissions,
		mailSvc:     mailSvc,
	}

	if spec := conf.Scheduler.TutorDigestSpec; spec != "" {
		if _, err := s.cron.AddFunc(spec, s.runTutorDigest); err != nil {
			return nil, errors.Wrapf(err, "scheduling tutor digest %q", spec)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs, or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runTutorDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if n, err := s.SendTutorDigest(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("tutor digest: %v", err), err)
	} else {
		s.logger.Info(fmt.Sprintf("tutor digest sent to %d tutor(s)", n))
	}
}

// SendTutorDigest emails every active tutor the number of submitted units waiting to be marked.
// Nothing is sent when no unit is waiting. It returns the number of emails sent.
func (s *Scheduler) SendTutorDigest(ctx context.Context) (int, error) {
	subs, err := s.submissions.List(ctx, submission.QueryFilter{
		Submitted: core.BoolPtr(true),
		Closed:    core.BoolPtr(false),
	})
	if err != nil {
		return 0, err
	}
	var count int
	for _, sub := range subs {
		if !sub.Skipped {
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}

	tutors, err := s.users.Query(ctx, &user.QueryFilter{Roles: user.TutorRoles, IsActive: core.BoolPtr(true)}, nil)
	if err != nil {
		return 0, err
	}

	messages := make([]*core.EmailMessage, 0, len(tutors))
	for _, tutor := range tutors {
		if tutor.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: tutor.Name, Address: tutor.Email}},
			Subject:      "Units waiting to be marked",
			TemplateName: "tutor_digest",
			TemplateData: map[string]interface{}{
				"Name":  tutor.Name,
				"Count": count,
			},
		})
	}
	s.mailSvc.SendMessages(messages...)
	return len(messages), nil
}

// cronLogger reports job panics and skips through core.Logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(fmt.Sprintf("cron: %s %v", msg, keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s %v", msg, keysAndValues), err)
}
