package worker

import (
	"github.com/spec-kit/user-service/internal/service"
)

// StartNotificationWorker registers notification handlers at boot.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
