// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
)

const (
	NotificationOrderCreated = "order_created"
	NotificationOrderShipped = "order_shipped"
)

// Notifier receives order lifecycle events once the order is committed.
// Implementations must not block the caller and must not report failures
// back to it.
type Notifier interface {
	OrderCreated(order *models.Order)
	OrderShipped(order *models.Order)
}

type NopNotifier struct{}

func (NopNotifier) OrderCreated(*models.Order) {}
func (NopNotifier) OrderShipped(*models.Order) {}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// NotificationService stores an in-app notification per recipient and
// mails it. Delivery runs in the background.
type NotificationService struct {
	db       *gorm.DB
	config   *config.Config
	sendMail sendMailFunc
	wg       sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, config *config.Config) *NotificationService {
	return &NotificationService{
		db:       db,
		config:   config,
		sendMail: smtp.SendMail,
	}
}

func (s *NotificationService) OrderCreated(order *models.Order) {
	s.dispatch(NotificationOrderCreated, order, s.NotifyOrderCreated)
}

func (s *NotificationService) OrderShipped(order *models.Order) {
	s.dispatch(NotificationOrderShipped, order, s.NotifyOrderShipped)
}

// Wait blocks until every dispatched notification has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) dispatch(kind string, order *models.Order, fn func(context.Context, *models.Order) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{"type": kind, "order": order.UUID}).Errorf("notification panicked: %v", r)
			}
		}()

		if err := fn(context.Background(), order); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"type":  kind,
				"order": order.UUID,
			}).Error("Failed to deliver notification")
		}
	}()
}

// NotifyOrderCreated tells the customer and the first admin about a new order.
func (s *NotificationService) NotifyOrderCreated(ctx context.Context, order *models.Order) error {
	recipients := make([]models.User, 0, 2)

	var customer models.User
	if err := s.db.WithContext(ctx).Unscoped().First(&customer, order.CustomerID).Error; err != nil {
		return fmt.Errorf("load customer: %w", err)
	}
	recipients = append(recipients, customer)

	var admin models.User
	err := s.db.WithContext(ctx).Where("role = ?", models.UserRoleAdmin).Order("id").First(&admin).Error
	switch {
	case err == nil:
		recipients = append(recipients, admin)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load admin: %w", err)
	}

	lang := i18n.DefaultLang
	title := i18n.T(lang, i18n.KeyNotifyOrderCreatedTitle)
	message := i18n.T(lang, i18n.KeyNotifyOrderCreatedMessage, order.UUID, order.TotalPrice.StringFixed(2))

	var errs []error
	for i := range recipients {
		errs = append(errs, s.notify(ctx, &recipients[i], NotificationOrderCreated, title, message, order))
	}
	return errors.Join(errs...)
}

// NotifyOrderShipped tells the customer their order left the warehouse.
func (s *NotificationService) NotifyOrderShipped(ctx context.Context, order *models.Order) error {
	var customer models.User
	if err := s.db.WithContext(ctx).Unscoped().First(&customer, order.CustomerID).Error; err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	lang := i18n.DefaultLang
	title := i18n.T(lang, i18n.KeyNotifyOrderShippedTitle)
	message := i18n.T(lang, i18n.KeyNotifyOrderShippedMessage, order.UUID)
	return s.notify(ctx, &customer, NotificationOrderShipped, title, message, order)
}

func (s *NotificationService) notify(ctx context.Context, user *models.User, kind, title, message string, order *models.Order) error {
	notification := &models.Notification{
		UserID:  user.ID,
		Type:    kind,
		Title:   title,
		Message: message,
		Data: models.JSONB{
			"order_id":    order.ID,
			"order_uuid":  order.UUID.String(),
			"status":      string(order.Status),
			"total_price": order.TotalPrice.StringFixed(2),
		},
	}
	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	body, err := s.renderTemplate(orderEmailTemplate, map[string]interface{}{
		"Name":     user.Name,
		"Title":    title,
		"Message":  message,
		"OrderURL": fmt.Sprintf("%s/orders/%s", s.config.Frontend.BaseURL, order.UUID),
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return s.sendEmail(user.Email, title, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		// Email not configured, just log
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Debug("SMTP not configured, skipping email")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.config.Email.FromName, s.config.Email.FromEmail, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return s.sendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

const orderEmailTemplate = `
<!DOCTYPE html>
<html>
<body>
	<h2>{{.Title}}</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Message}}</p>
	<a href="{{.OrderURL}}">View order</a>
</body>
</html>`
