package utils

import (
	"fmt"
	"log"

	"lms/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail sends an HTML email through SendGrid. When no API key is
// configured the email is skipped, not treated as an error, so local
// development works without credentials.
func SendEmail(to, toName, subject, htmlBody string) error {
	if config.AppConfig == nil || config.AppConfig.SendGridApiKey == "" {
		log.Printf("[EMAIL] SendGrid not configured, skipping email to %s (%s)", to, subject)
		return nil
	}

	from := mail.NewEmail("Training Desk", config.AppConfig.EmailSender)
	recipient := mail.NewEmail(toName, to)
	message := mail.NewSingleEmail(from, subject, recipient, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendGridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] Error sending email to %s: %v", to, err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("[EMAIL] SendGrid rejected email to %s: %d %s", to, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

// getEmailTemplate wraps body content in the shared HTML layout
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.footer { padding: 20px; text-align: center; font-size: 12px; color: #999999; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">%s</div>
			<div class="footer">This is an automated message. Please do not reply.</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}

// SendCourseCompletionEmail congratulates a learner when an enrollment
// reaches 100%.
func SendCourseCompletionEmail(to, name, courseTitle string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Congratulations! You have completed all lessons of <b>%s</b>.</p>
		<p>You can now request your certificate from your dashboard.</p>`,
		name, courseTitle)
	return SendEmail(to, name, "Course completed: "+courseTitle, getEmailTemplate("Course Completed", body))
}

// SendCertificateIssuedEmail notifies a learner that their certificate was issued.
func SendCertificateIssuedEmail(to, name, courseTitle, certificateNumber string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your certificate for <b>%s</b> has been issued.</p>
		<p>Certificate number: <b>%s</b></p>`,
		name, courseTitle, certificateNumber)
	return SendEmail(to, name, "Your certificate for "+courseTitle, getEmailTemplate("Certificate Issued", body))
}
