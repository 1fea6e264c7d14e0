// Package email notifies the data protection officer over SMTP.
package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration. Email is disabled when Host or From
// is empty.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	DPOAddr  string
}

type Service struct {
	config Config
	server string
	auth   smtp.Auth
}

func NewService(config Config) *Service {
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   smtp.PlainAuth("", config.Username, config.Password, config.Host),
	}
}

func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != "" && s.config.DPOAddr != ""
}

// NotifyReportReady tells the DPO a registry report was generated and
// where its artifact lives.
func (s *Service) NotifyReportReady(requestedBy, format, objectKey string) error {
	body := fmt.Sprintf(
		"A data registry report was generated by %s (format: %s).\r\n", requestedBy, format)
	if objectKey != "" {
		body += fmt.Sprintf("The artifact is stored at: %s\r\n", objectKey)
	}
	return s.send([]string{s.config.DPOAddr}, "Registry report generated", body)
}

// NotifyAssignmentChanged tells the DPO a context assignment was edited.
func (s *Service) NotifyAssignmentChanged(actor, contextName string) error {
	body := fmt.Sprintf("%s changed the purpose/category assignment of %q.\r\n", actor, contextName)
	return s.send([]string{s.config.DPOAddr}, "Registry assignment changed", body)
}

func (s *Service) send(to []string, subject, body string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	msg := []byte(fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		strings.Join(to, ", "), from, subject, body,
	))
	return smtp.SendMail(s.server, s.auth, s.config.From, to, msg)
}
