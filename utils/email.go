package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"project/models"

	"gopkg.in/gomail.v2"
)

// Mailer sends best-effort customer notifications over SMTP. Nil when SMTP is
// not configured; callers must treat it as optional.
type Mailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewMailerFromEnv returns nil (not an error) when SMTP_HOST is unset so the
// rest of the app runs without email.
func NewMailerFromEnv() *Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}
	user := os.Getenv("SMTP_USER")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}
	return &Mailer{
		host: host,
		port: port,
		user: user,
		pass: os.Getenv("SMTP_PASS"),
		from: from,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.pass)
	return d.DialAndSend(msg)
}

// NotifyOrderStatus emails the customer about the order's current stage.
// Failures are logged, never propagated.
func (m *Mailer) NotifyOrderStatus(email, name string, order *models.Order) {
	var subject, body string
	switch order.Status {
	case models.OrderPendingApproval:
		subject = "Pembayaran DP diterima"
		body = fmt.Sprintf("Halo %s,\n\nPembayaran DP untuk order %s (%s) sudah kami terima. Order Anda sedang menunggu persetujuan tim kami.", name, order.ID, order.ServiceType)
	case models.OrderDemoReady:
		subject = "Demo siap dilihat"
		body = fmt.Sprintf("Halo %s,\n\nDemo untuk order %s (%s) sudah siap. Silakan cek dashboard Anda, lalu lakukan pelunasan untuk menerima hasil akhir.", name, order.ID, order.ServiceType)
	case models.OrderCompleted:
		subject = "Order selesai"
		body = fmt.Sprintf("Halo %s,\n\nPelunasan untuk order %s (%s) sudah kami terima. Link hasil akhir sudah tersedia di dashboard Anda.", name, order.ID, order.ServiceType)
	default:
		return
	}
	if err := m.Send(email, subject, body); err != nil {
		log.Printf("[mail] send to %s failed: %v", email, err)
	}
}
