package emailsvc

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
)

// consoleService writes emails as MIME messages to a standard logger instead of sending them.
type consoleService struct {
	from       mail.Address
	subjPrefix string
	out        *log.Logger // nil discards the output
	logger     core.Logger
	nowFunc    func() time.Time
}

var _ core.EmailService = (*consoleService)(nil)

func newConsoleService(conf *core.Config, logger core.Logger, out *log.Logger) consoleService {
	return consoleService{
		from:       conf.Mail.DefaultFrom(),
		subjPrefix: "[" + conf.AppName + "] ",
		out:        out,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

func NewConsoleService(conf *core.Config, logger core.Logger) core.EmailService {
	svc := newConsoleService(conf, logger, log.Default())
	return &svc
}

func (svc *consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		msg := msg
		go svc.sendMessage(msg)
	}
}

// sendMessage reports whether the message had anything to send.
func (svc *consoleService) sendMessage(msg *core.EmailMessage) bool {
	if err := msg.Render(); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return false
	}
	if !msg.HasRecipients() || !(msg.HasContent() || msg.HasAttachments()) {
		return false
	}
	body, err := svc.compose(*msg)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("composing email %q: %v", msg.TemplateName, err), err)
		return false
	}
	if svc.out != nil {
		svc.out.Println(body)
	}
	return true
}

func joinAddresses(addrs []mail.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// compose renders msg as a multipart/alternative message, nested in a multipart/mixed one when it has attachments.
func (svc *consoleService) compose(msg core.EmailMessage) (string, error) {
	var b strings.Builder
	headers := [][2]string{
		{"From", svc.from.String()},
		{"MIME-Version", "1.0"},
		{"Date", svc.nowFunc().Format(time.RFC1123Z)},
		{"Subject", svc.subjPrefix + msg.Subject},
		{"To", joinAddresses(msg.To)},
		{"CC", joinAddresses(msg.Cc)},
		{"BCC", joinAddresses(msg.Bcc)},
	}
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}

	alt := multipart.NewWriter(&b)
	var mixed *multipart.Writer
	if msg.HasAttachments() {
		mixed = multipart.NewWriter(&b)
		fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mixed.Boundary())
		if _, err := mixed.CreatePart(textproto.MIMEHeader{"Content-Type": {"multipart/alternative; boundary=" + alt.Boundary()}}); err != nil {
			return "", errors.Wrap(err, "creating multipart/alternative part")
		}
	} else {
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", alt.Boundary())
	}

	if err := writePart(alt, textproto.MIMEHeader{"Content-Type": {"text/plain"}}, msg.TextContent); err != nil {
		return "", err
	}
	if msg.HTMLContent != "" {
		if err := writePart(alt, textproto.MIMEHeader{"Content-Type": {"text/html"}}, msg.HTMLContent); err != nil {
			return "", err
		}
	}
	if err := alt.Close(); err != nil {
		return "", errors.Wrap(err, "closing multipart/alternative")
	}

	if mixed == nil {
		return b.String(), nil
	}
	for _, at := range msg.Attachments {
		h := textproto.MIMEHeader{
			"Content-Type":              {at.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {"attachment; filename=" + at.Filename},
		}
		if err := writePart(mixed, h, at.Content.String()); err != nil {
			return "", err
		}
	}
	return b.String(), errors.Wrap(mixed.Close(), "closing multipart/mixed")
}

func writePart(w *multipart.Writer, h textproto.MIMEHeader, content string) error {
	part, err := w.CreatePart(h)
	if err != nil {
		return errors.Wrapf(err, "creating %s part", h.Get("Content-Type"))
	}
	_, err = io.WriteString(part, content+"\r\n")
	return errors.WithStack(err)
}

// ConsoleServiceMock renders messages synchronously and records them instead of printing them.
type ConsoleServiceMock struct {
	consoleService

	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*ConsoleServiceMock)(nil)

func NewConsoleServiceMock(conf *core.Config, logger core.Logger) *ConsoleServiceMock {
	return &ConsoleServiceMock{consoleService: newConsoleService(conf, logger, nil)}
}

func (svc *ConsoleServiceMock) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if svc.sendMessage(msg) {
			svc.mu.Lock()
			svc.sent = append(svc.sent, *msg)
			svc.mu.Unlock()
		}
	}
}

// SentMessages returns a copy of the messages sent so far.
func (svc *ConsoleServiceMock) SentMessages() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}

func (svc *ConsoleServiceMock) Reset() {
	svc.mu.Lock()
	svc.sent = nil
	svc.mu.Unlock()
}
