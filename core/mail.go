package core

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmltmpl "html/template"
	"io"
	"io/fs"
	"net/mail"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/openschool/campus/assets"
)

const emailTmplDir = "templates/email"

// email template extensions, text first
const (
	extText = ".txt"
	extHTML = ".gohtml"
)

// executor is satisfied by both text and html templates.
type executor interface {
	ExecuteTemplate(w io.Writer, name string, data interface{}) error
}

var (
	templatesMu sync.RWMutex
	templates   map[string]map[string]executor // {name: {ext: template}}
	frontendURL string
)

type (
	Attachment struct {
		Content     *bytes.Buffer // base64 encoded
		ContentType string
		Filename    string
	}

	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string // simple text/plain, non-templated content
		Attachments []Attachment

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// ContextData is what every email template is executed with.
	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func lookupTemplate(name, ext string) (executor, ContextData, bool) {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	tmpl, ok := templates[name][ext]
	return tmpl, ContextData{FrontendBaseURL: frontendURL}, ok
}

// execute renders the ext template of the message, if there is one, into dst.
func (m *EmailMessage) execute(ext string, dst *string) error {
	tmpl, data, ok := lookupTemplate(m.TemplateName, ext)
	if !ok {
		return nil
	}
	data.Data = m.TemplateData

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return errors.Wrapf(err, "rendering %s%s", m.TemplateName, ext)
	}
	*dst = buf.String()
	return nil
}

// Render fills TextContent and HTMLContent. BodyStr, when set, is the text content as is.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	} else if m.TemplateName != "" {
		if err := m.execute(extText, &m.TextContent); err != nil {
			return err
		}
	}
	if m.TemplateName == "" {
		return nil
	}
	return m.execute(extHTML, &m.HTMLContent)
}

func (m *EmailMessage) Attach(r io.Reader, filename string, ct ...string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	at := Attachment{Filename: filename, Content: new(bytes.Buffer)}
	encoder := base64.NewEncoder(base64.StdEncoding, at.Content)
	if _, err := encoder.Write(content); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}

	if len(ct) > 0 {
		at.ContentType = ct[0]
	} else {
		at.ContentType = mimetype.Detect(content).String()
	}
	m.Attachments = append(m.Attachments, at)
	return nil
}

func (m *EmailMessage) AttachFile(path string, contentType ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.Attach(f, filepath.Base(path), contentType...)
}

func (m *EmailMessage) HasRecipients() bool  { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool     { return (m.TextContent != "") || (m.HTMLContent != "") }
func (m *EmailMessage) HasAttachments() bool { return len(m.Attachments) > 0 }

// parseEmailTemplate parses a text or html template. Strict templates fail on missing map keys.
func parseEmailTemplate(ext string, strict bool, patterns ...string) (executor, error) {
	missingKey := "missingkey=default"
	if strict {
		missingKey = "missingkey=error"
	}
	if ext == extText {
		tmpl, err := texttmpl.ParseFS(assets.FS, patterns...)
		if err != nil {
			return nil, err
		}
		return tmpl.Option(missingKey), nil
	}
	tmpl, err := htmltmpl.ParseFS(assets.FS, patterns...)
	if err != nil {
		return nil, err
	}
	return tmpl.Option(missingKey), nil
}

// ParseEmailTemplates loads the embedded email templates; each one is parsed along with its `_base` layout.
func ParseEmailTemplates(conf *Config, logger Logger) {
	entries, err := fs.ReadDir(assets.FS, emailTmplDir)
	if err != nil {
		logger.Error(fmt.Sprintf("core.ParseEmailTemplates: %v", err), err)
		return
	}

	strict := conf.Debug || conf.TestMode
	cache := make(map[string]map[string]executor)
	for _, e := range entries {
		fname := e.Name()
		ext := path.Ext(fname)
		if e.IsDir() || strings.HasPrefix(fname, "_") || (ext != extText && ext != extHTML) {
			continue
		}
		tmpl, err := parseEmailTemplate(ext, strict, path.Join(emailTmplDir, "_base"+ext), path.Join(emailTmplDir, fname))
		if err != nil {
			logger.Error(fmt.Sprintf("core.ParseEmailTemplates(%s): %v", fname, err), err)
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		if cache[name] == nil {
			cache[name] = make(map[string]executor, 2)
		}
		cache[name][ext] = tmpl
	}

	templatesMu.Lock()
	templates = cache
	frontendURL = conf.FrontendBaseURL
	templatesMu.Unlock()
}
