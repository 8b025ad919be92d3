// Package events delivers order lifecycle events to the configured message bus.
package events

import (
	"encoding/json"
	"strings"

	"github.com/pratik1sharma-dev/ukiyo-lifestyle-new-sub000/internal/services"
)

// Publisher is an OrderEventPublisher that owns a connection to release on shutdown.
type Publisher interface {
	services.OrderEventPublisher
	Close() error
}

func encode(event services.OrderEvent) ([]byte, error) {
	return json.Marshal(event)
}

func attributes(event services.OrderEvent) map[string]string {
	attrs := make(map[string]string, 5)
	setAttr(attrs, "eventId", event.ID)
	setAttr(attrs, "eventType", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderNumber", event.OrderNumber)
	setAttr(attrs, "userId", event.UserID)
	return attrs
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
