package services

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/rentora/applications-service/internal/models"
	"github.com/rentora/applications-service/internal/utils"
)

// Notifier delivers status emails and SMS. Delivery is best-effort: callers
// log failures and never roll back state because a message did not go out.
type Notifier interface {
	NotifyStatusChange(recipient *models.User, app *models.Application, change models.StatusChange) error
	NotifyNewApplication(owner *models.User, app *models.Application) error
	NotifyScoringComplete(owner *models.User, app *models.Application) error
	NotifyPaymentRequested(recipient *models.User, app *models.Application, amount float64, purpose string) error
	NotifyLeaseSignature(recipient *models.User, app *models.Application, status models.LeaseSignatureStatus) error
}

const statusChangeEmailHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Application Update</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f4f6f8; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: auto; background: #fff; border: 1px solid #e1e4e8; border-radius: 8px;">
    <div style="background-color: #2c5282; color: #fff; padding: 15px 20px; border-radius: 8px 8px 0 0;">
      <h1 style="margin: 0; font-size: 20px;">%s</h1>
    </div>
    <div style="padding: 20px;">
      <p>Hi %s,</p>
      <p>%s</p>
      <ul style="list-style: none; padding: 0;">
        <li style="padding: 6px 0; border-bottom: 1px solid #eee;"><strong>Property:</strong> %s</li>
        <li style="padding: 6px 0; border-bottom: 1px solid #eee;"><strong>Address:</strong> %s</li>
        <li style="padding: 6px 0;"><strong>Status:</strong> %s</li>
      </ul>
    </div>
  </div>
</body>
</html>`

type sendgridTwilioNotifier struct {
	sgClient        *sendgrid.Client
	twClient        *twilio.RestClient
	fromEmail       string
	fromPhone       string
	orgName         string
	sendgridSandbox bool
}

func NewNotifier(
	sgClient *sendgrid.Client,
	twClient *twilio.RestClient,
	fromEmail, fromPhone, orgName string,
	sendgridSandbox bool,
) Notifier {
	return &sendgridTwilioNotifier{
		sgClient:        sgClient,
		twClient:        twClient,
		fromEmail:       fromEmail,
		fromPhone:       fromPhone,
		orgName:         orgName,
		sendgridSandbox: sendgridSandbox,
	}
}

func (n *sendgridTwilioNotifier) send(recipient *models.User, subject, body string, app *models.Application, statusLine string) error {
	// ---------- Twilio SMS ----------
	if n.twClient != nil && recipient.Phone != "" {
		params := &twilioApi.CreateMessageParams{}
		params.SetTo(recipient.Phone)
		params.SetFrom(n.fromPhone)
		params.SetBody(subject + " :: " + body)
		if _, smsErr := n.twClient.Api.CreateMessage(params); smsErr != nil {
			utils.Logger.WithError(smsErr).Warnf("Failed to send SMS to user %s", recipient.ID)
		}
	}

	// ---------- SendGrid Email ----------
	if n.sgClient == nil {
		utils.Logger.Warnf("SendGrid client is nil, skipping email to user %s", recipient.ID)
		return nil
	}

	htmlBody := fmt.Sprintf(
		statusChangeEmailHTML,
		subject,
		recipient.FirstName,
		body,
		app.Property.Title,
		app.Property.AddressLine+", "+app.Property.City+", "+app.Property.State,
		statusLine,
	)

	from := mail.NewEmail(n.orgName, n.fromEmail)
	to := mail.NewEmail(recipient.FullName(), recipient.Email)
	msg := mail.NewSingleEmail(from, subject, to, body, htmlBody)
	msg.TrackingSettings = &mail.TrackingSettings{
		ClickTracking: &mail.ClickTrackingSetting{
			Enable: utils.Ptr(false),
		},
	}
	if n.sendgridSandbox {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		msg.MailSettings = ms
	}
	if _, sgErr := n.sgClient.Send(msg); sgErr != nil {
		return sgErr
	}
	return nil
}

func (n *sendgridTwilioNotifier) NotifyStatusChange(recipient *models.User, app *models.Application, change models.StatusChange) error {
	subject := fmt.Sprintf("Your application is now %s", change.To)
	body := fmt.Sprintf("Your rental application for %s has moved from %s to %s.", app.Property.Title, change.From, change.To)
	if change.Reason != "" {
		body += " Reason: " + change.Reason
	}
	return n.send(recipient, subject, body, app, string(change.To))
}

func (n *sendgridTwilioNotifier) NotifyNewApplication(owner *models.User, app *models.Application) error {
	subject := "New rental application received"
	body := fmt.Sprintf("%s %s has submitted an application for %s.",
		app.PersonalInfo.FirstName, app.PersonalInfo.LastName, app.Property.Title)
	return n.send(owner, subject, body, app, string(models.StatusSubmitted))
}

func (n *sendgridTwilioNotifier) NotifyScoringComplete(owner *models.User, app *models.Application) error {
	subject := "Application scoring complete"
	body := fmt.Sprintf("The application for %s has been scored.", app.Property.Title)
	if app.Score != nil {
		body = fmt.Sprintf("The application for %s scored %d out of 100.", app.Property.Title, app.Score.Total)
	}
	return n.send(owner, subject, body, app, string(app.Status))
}

func (n *sendgridTwilioNotifier) NotifyPaymentRequested(recipient *models.User, app *models.Application, amount float64, purpose string) error {
	subject := "Screening fee requested"
	body := fmt.Sprintf("A payment of $%.2f (%s) has been requested for your application to %s.", amount, purpose, app.Property.Title)
	return n.send(recipient, subject, body, app, string(models.StatusPaymentRequested))
}

func (n *sendgridTwilioNotifier) NotifyLeaseSignature(recipient *models.User, app *models.Application, status models.LeaseSignatureStatus) error {
	var subject, body string
	switch status {
	case models.LeaseSigned:
		subject = "Lease fully signed"
		body = fmt.Sprintf("All parties have signed the lease for %s. The executed document is being prepared.", app.Property.Title)
	default:
		subject = "Lease signature recorded"
		body = fmt.Sprintf("A signature has been recorded on the lease for %s.", app.Property.Title)
	}
	return n.send(recipient, subject, body, app, string(status))
}
