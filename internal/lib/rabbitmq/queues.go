package rabbitmq

// Exchange обменник уведомлений.
const Exchange = "notifications"

// Очередь напоминаний о продлении.
const (
	ReminderQueue      = "notifications.renewal_due"
	ReminderRoutingKey = "renewal_due"
)

// QueueConfig очередь и ключ маршрутизации, которым она привязана к Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди, которые объявляют планировщик и отправщик.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: ReminderQueue, RoutingKey: ReminderRoutingKey},
	}
}
