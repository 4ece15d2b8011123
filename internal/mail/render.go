package mail

import (
	"fmt"
	"strings"

	"github.com/healthcareclinic/clinic-api/internal/models"
)

const clinicName = "HealthCare Clinic"

// OTPMessage renders the code-delivery mail for the given flow.
// purpose is one of "registration", "login", "password reset",
// "admin login".
func OTPMessage(purpose, code string) (subject, body string) {
	subject = fmt.Sprintf("%s OTP - %s", titleCase(purpose), clinicName)
	body = fmt.Sprintf(
		"Your OTP for %s is: %s\n\nThis OTP is valid for 10 minutes. Do not share it with anyone.\n\nBest Regards,\n%s Team",
		purpose, code, clinicName)
	return subject, body
}

var notices = map[string]struct {
	subject string
	intro   string
}{
	models.NotifyBooked: {
		"Appointment Confirmation",
		"Thank you for booking an appointment with " + clinicName + ". We have successfully received your appointment request.",
	},
	models.NotifyRescheduled: {
		"Appointment Rescheduled",
		"Your appointment has been rescheduled. The new date and time are shown below.",
	},
	models.NotifyConfirmed: {
		"Appointment Confirmed",
		"Your appointment has been confirmed by %s. We look forward to seeing you!",
	},
	models.NotifyRejected: {
		"Appointment Rejected",
		"We regret to inform you that your appointment has been rejected by %s. Please contact us or book another slot.",
	},
	models.NotifyCancelled: {
		"Appointment Cancelled",
		"Your appointment has been cancelled. If this was not intended, please contact us or book a new appointment.",
	},
}

// AppointmentMessage renders a lifecycle notice from the outbox snapshot.
// The second return is false for an unknown kind.
func AppointmentMessage(n *models.Notification) (subject, body string, ok bool) {
	notice, ok := notices[n.Kind]
	if !ok {
		return "", "", false
	}

	subject = notice.subject + " - " + clinicName
	intro := notice.intro
	if strings.Contains(intro, "%s") {
		intro = fmt.Sprintf(intro, n.DoctorName)
	}

	apt := n.Appointment
	message := apt.Message
	if message == "" {
		message = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n%s\n\n", apt.Name, intro)
	b.WriteString("Appointment Details\n")
	fmt.Fprintf(&b, "  Doctor:      %s\n", n.DoctorName)
	fmt.Fprintf(&b, "  Patient:     %s\n", apt.Name)
	fmt.Fprintf(&b, "  Email:       %s\n", apt.Email)
	fmt.Fprintf(&b, "  Mobile:      %s\n", apt.Mobile)
	fmt.Fprintf(&b, "  Gender:      %s\n", apt.Gender)
	fmt.Fprintf(&b, "  Address:     %s\n", apt.Address)
	fmt.Fprintf(&b, "  Age:         %d\n", apt.Age)
	fmt.Fprintf(&b, "  Reason:      %s\n", apt.Disease)
	fmt.Fprintf(&b, "  Date & Time: %s\n", apt.Date.Format("Jan 2, 2006 at 3:04 PM"))
	fmt.Fprintf(&b, "  Message:     %s\n", message)
	fmt.Fprintf(&b, "  Status:      %s\n\n", apt.Status)
	b.WriteString("Please arrive at least 15 minutes before your scheduled appointment time and bring a valid photo ID.\n")
	b.WriteString("If you need to cancel or reschedule, please do so at least 24 hours in advance.\n\n")
	fmt.Fprintf(&b, "Best Regards,\n%s Team", clinicName)

	return subject, b.String(), true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
