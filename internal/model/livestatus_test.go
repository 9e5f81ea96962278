package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiveBusStatusText(t *testing.T) {
	tests := []struct {
		name string
		bus  LiveBus
		want string
	}{
		{
			name: "unknown capacity never divides",
			bus:  LiveBus{Capacity: 0, PredictedPassengersAtStop: 10},
			want: "No seat data",
		},
		{
			name: "no seats left",
			bus:  LiveBus{Capacity: 40, PredictedPassengersAtStop: 40, AvailableSeatsAtStop: 0},
			want: "FULL",
		},
		{
			name: "nearly full by rate",
			bus:  LiveBus{Capacity: 40, PredictedPassengersAtStop: 36, AvailableSeatsAtStop: 4},
			want: "FULL",
		},
		{
			name: "filling up",
			bus:  LiveBus{Capacity: 40, PredictedPassengersAtStop: 24, AvailableSeatsAtStop: 16},
			want: "FILLING UP",
		},
		{
			name: "plenty of room",
			bus:  LiveBus{Capacity: 40, PredictedPassengersAtStop: 8, AvailableSeatsAtStop: 32},
			want: "32 seats free",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bus.StatusText())
		})
	}
}
