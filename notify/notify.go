// Package notify delivers finished report notices over Telegram and email.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"

	abtests "github.com/dklovas/A-B-Tests"
	"github.com/dklovas/A-B-Tests/goutils"
)

const telegramApiUrl = "https://api.telegram.org/bot%s/sendMessage"

type TelegramMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type Telegram struct {
	Url    string `json:"url"`
	ChatId int64  `json:"chat_id"`
}

func NewTelegram(conf abtests.TelegramData) (Telegram, error) {
	chatIdNumber, err := strconv.ParseInt(conf.ChatId, 10, 64)
	if err != nil {
		return Telegram{}, fmt.Errorf("parse chat id: %w", err)
	}

	return Telegram{
		Url:    fmt.Sprintf(telegramApiUrl, conf.Token),
		ChatId: chatIdNumber,
	}, nil
}

// SendMessage posts a plain text message to the configured chat.
func (t *Telegram) SendMessage(messageString string) error {
	message := TelegramMessage{
		ChatID: t.ChatId,
		Text:   messageString,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	response, err := http.Post(t.Url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		body.Close()
	}(response.Body)
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send successful request. Status was %q", response.Status)
	}
	return nil
}

// SendEmail sends an HTML email through the configured SMTP server.
func SendEmail(conf abtests.SmtpData, subject string, message string) error {
	port := conf.Port
	if port == "" {
		port = "587"
	}
	addr := conf.Server + ":" + port

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	body := "<html><body>" + message + "</body></html>"

	msg := []byte("To: " + strings.Join(conf.To[:], ",") + "\r\n" + "Subject:" + subject + "\r\n" + mime + body)

	auth := smtp.PlainAuth("", conf.User, conf.Password, conf.Server)
	err := smtp.SendMail(addr, auth, conf.From, conf.To, msg)

	if err != nil {
		return err
	}

	return nil
}

// SendEmailReport mails the content of a generated HTML report file.
func SendEmailReport(conf abtests.SmtpData, subject string, reportFile string) error {
	content, err := goutils.GetFileContent(reportFile)
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}

	return SendEmail(conf, subject, string(content))
}
