package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sharmaji2007/student-counsellor-system/internal/clients/twilio"
	"github.com/sharmaji2007/student-counsellor-system/internal/pkg/logger"
	"github.com/sharmaji2007/student-counsellor-system/internal/types"
)

// SOSAlert carries everything the outbound channels need about a
// flagged message.
type SOSAlert struct {
	Student  *types.User
	Profile  *types.StudentProfile
	Message  string
	Keywords []string
}

type NotificationService interface {
	SendSOSAlert(ctx context.Context, alert *SOSAlert) (counselorNotified, guardianNotified bool)
}

type notificationService struct {
	log            *logger.Logger
	sms            twilio.Client
	counselorPhone string
	counselorEmail string
}

// NewNotificationService accepts a nil SMS client; delivery then
// degrades to log lines so the SOS pipeline never blocks on Twilio.
func NewNotificationService(baseLog *logger.Logger, sms twilio.Client) NotificationService {
	serviceLog := baseLog.With("service", "NotificationService")
	return &notificationService{
		log:            serviceLog,
		sms:            sms,
		counselorPhone: strings.TrimSpace(os.Getenv("COUNSELOR_PHONE")),
		counselorEmail: strings.TrimSpace(os.Getenv("COUNSELOR_EMAIL")),
	}
}

func (ns *notificationService) SendSOSAlert(ctx context.Context, alert *SOSAlert) (bool, bool) {
	body := sosAlertBody(alert)

	counselorNotified := false
	if ns.counselorPhone != "" {
		if ns.sendSMS(ctx, ns.counselorPhone, body) {
			counselorNotified = true
		}
	}
	if ns.counselorEmail != "" {
		ns.sendEmail(ns.counselorEmail, "URGENT: Student Safety Alert", body)
		counselorNotified = true
	}

	guardianNotified := false
	if alert.Profile != nil {
		if alert.Profile.GuardianPhone != "" {
			if ns.sendSMS(ctx, alert.Profile.GuardianPhone, body) {
				guardianNotified = true
			}
		}
		if alert.Profile.GuardianEmail != "" {
			ns.sendEmail(alert.Profile.GuardianEmail, "URGENT: Student Safety Alert", body)
			guardianNotified = true
		}
	}

	ns.log.Info("SOS alert dispatched",
		"student_id", alert.Student.ID.String(),
		"counselor_notified", counselorNotified,
		"guardian_notified", guardianNotified,
	)
	return counselorNotified, guardianNotified
}

func (ns *notificationService) sendSMS(ctx context.Context, phone, body string) bool {
	if ns.sms == nil {
		ns.log.Warn("No SMS client configured, logging alert instead", "to", phone, "body", body)
		return false
	}
	msg, err := ns.sms.SendSMS(ctx, phone, body)
	if err != nil {
		ns.log.Error("Failed to send SMS alert", "to", phone, "error", err.Error())
		return false
	}
	ns.log.Info("SMS alert sent", "to", phone, "sid", msg.SID)
	return true
}

// sendEmail is a placeholder delivery channel. Swap in a real provider
// when one is provisioned.
func (ns *notificationService) sendEmail(email, subject, body string) {
	ns.log.Info("Email alert (mock delivery)", "to", email, "subject", subject, "body", body)
}

func sosAlertBody(alert *SOSAlert) string {
	var b strings.Builder
	b.WriteString("URGENT: Student Safety Alert\n\n")
	fmt.Fprintf(&b, "Student: %s (ID: %s)\n", alert.Student.FullName, alert.Student.ID)
	fmt.Fprintf(&b, "Triggered Keywords: %s\n", strings.Join(alert.Keywords, ", "))
	fmt.Fprintf(&b, "Message: %q\n\n", alert.Message)
	b.WriteString("Please contact the student immediately.\n")
	fmt.Fprintf(&b, "Time: %s\n", time.Now().UTC().Format(time.RFC3339))
	return b.String()
}
