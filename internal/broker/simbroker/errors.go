package simbroker

import "github.com/kosheduteam/signalengine/internal/apperr"

const component = "simbroker"

func apperrNotFound(brokerOrderID string) error {
	return apperr.New(apperr.Validation, component, "unknown order id").
		WithContext("broker_order_id", brokerOrderID)
}
