package report

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"
	"time"

	"taskbrief/internal/rank"
)

// Mailer 通过 SMTP (STARTTLS) 发送简报邮件
// Mailer sends brief notifications over SMTP with STARTTLS. Gmail app
// passwords work out of the box with the default server settings.
type Mailer struct {
	Server   string
	Port     int
	From     string
	To       string
	Password string
	Now      func() time.Time

	// send 可注入以便测试 / injectable for tests
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailer(server string, port int, from, to, password string) *Mailer {
	return &Mailer{
		Server:   server,
		Port:     port,
		From:     from,
		To:       to,
		Password: password,
		Now:      time.Now,
		send:     smtp.SendMail,
	}
}

// SendDailyBrief 发送每日简报,正文含前五任务摘要
// SendDailyBrief emails the daily brief file with a top-tasks summary
// up front.
func (m *Mailer) SendDailyBrief(briefPath string, ranked []rank.Item) error {
	content, err := os.ReadFile(briefPath)
	if err != nil {
		return fmt.Errorf("read brief: %w", err)
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	subject := fmt.Sprintf("Your Daily Task Brief - %s", now.Format("January 2, 2006"))

	var body strings.Builder
	body.WriteString("TOP PRIORITIES\n\n")
	for i, it := range ranked {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&body, "%d. [%.1f] %s\n", i+1, it.Score, it.Task.Title)
	}
	body.WriteString("\n---\n\n")
	body.Write(content)

	return m.sendMessage(subject, body.String())
}

// SendWeeklyDigest 发送周报摘要 / SendWeeklyDigest emails the weekly report.
func (m *Mailer) SendWeeklyDigest(reportPath string) error {
	content, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("read weekly report: %w", err)
	}

	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	subject := fmt.Sprintf("Your Weekly Task Analytics - %s", now.Format("January 2, 2006"))
	return m.sendMessage(subject, string(content))
}

func (m *Mailer) sendMessage(subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", m.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", m.Server, m.Port)
	auth := smtp.PlainAuth("", m.From, m.Password, m.Server)

	sender := m.send
	if sender == nil {
		sender = smtp.SendMail
	}
	if err := sender(addr, auth, m.From, []string{m.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}
