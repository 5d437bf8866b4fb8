package http

import "meralcocli/pkg/contracts/domain"

// RatesReader is the read surface the handlers need from the payload
// store. Defined here so tests can seed a plain map-backed fake.
type RatesReader interface {
	Get(period domain.Period) (*domain.RatesPayload, bool)
	Latest() (*domain.RatesPayload, bool)
	Periods() []domain.Period
	Len() int
}
