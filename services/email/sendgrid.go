package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/openschool/campus/core"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// sendgridService sends emails through the SendGrid v3 API. Every email is tagged with the
// application name and its template name, so notifications (unit closed, unit returned,
// tutor digest, password reset) can be told apart in the SendGrid statistics.
type sendgridService struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	category   string
	sandbox    bool
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

// NewSendgridService returns a SendGrid email service. In test mode the emails are validated by
// SendGrid but never delivered.
func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return newSendgridService(conf, logger, sendgridHost)
}

func newSendgridService(conf *core.Config, logger core.Logger, host string) *sendgridService {
	from := conf.Mail.DefaultFrom()
	return &sendgridService{
		key:        conf.Mail.SendgridApiKey,
		host:       host,
		from:       sgmail.NewEmail(from.Name, from.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		category:   conf.AppName,
		sandbox:    conf.TestMode,
		logger:     logger,
	}
}

func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go func() {
			if err := msg.Render(); err != nil {
				svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
				return
			}
			if msg.HasRecipients() && (msg.HasContent() || msg.HasAttachments()) {
				svc.send(*msg)
			}
		}()
	}
}

func (svc *sendgridService) prepare(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgEmail(to))
	}
	for _, cc := range msg.Cc {
		p.AddCCs(sgEmail(cc))
	}
	for _, bcc := range msg.Bcc {
		p.AddBCCs(sgEmail(bcc))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)

	categories := []string{svc.category}
	if msg.TemplateName != "" {
		categories = append(categories, msg.TemplateName)
	}
	m.AddCategories(categories...)
	if svc.sandbox {
		m.SetMailSettings(sgmail.NewMailSettings().SetSandboxMode(sgmail.NewSetting(true)))
	}

	// SendGrid refuses empty contents; text/plain must come first
	if msg.TextContent != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	}
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}

	for _, at := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     at.Content.String(),
			Type:        at.ContentType,
			Filename:    at.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

func sgEmail(addr mail.Address) *sgmail.Email {
	return sgmail.NewEmail(addr.Name, addr.Address)
}

func (svc *sendgridService) send(msg core.EmailMessage) {
	req := sendgrid.GetRequest(svc.key, sendgridEndpoint, svc.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.TemplateName, err), err)
	} else if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error(fmt.Sprintf("sending email %q - status: %d - body: %s", msg.TemplateName, res.StatusCode, res.Body))
	}
}
