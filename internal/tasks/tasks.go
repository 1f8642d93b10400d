// Package tasks defines the background jobs exchanged between the API and
// the worker via asynq.
package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// TypeReservationExpire releases the stock reservations of an order that was
// never paid.
const TypeReservationExpire = "reservation:expire"

// ReservationExpirePayload identifies the order whose reservations expire.
type ReservationExpirePayload struct {
	StoreID string `json:"storeId"`
	OrderID string `json:"orderId"`
}

// NewReservationExpireTask builds the delayed expiry task enqueued at
// checkout time.
func NewReservationExpireTask(storeID, orderID string, after time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(ReservationExpirePayload{StoreID: storeID, OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReservationExpire, payload,
		asynq.ProcessIn(after),
		asynq.MaxRetry(5),
		asynq.TaskID("reservation-expire:"+orderID),
	), nil
}
