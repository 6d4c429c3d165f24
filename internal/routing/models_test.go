package routing

import (
	"errors"
	"testing"
)

func TestTransportMode_ToWire(t *testing.T) {
	tests := []struct {
		mode TransportMode
		want string
	}{
		{ModeDriving, "car"},
		{ModeWalking, "pedestrian"},
		{ModePublicTransport, "publicTransport"},
		{ModeBicycling, "bicycle"},
		{ModeTruck, "truck"},
		{ModeTaxi, "taxi"},
		{ModeBus, "bus"},
		{ModeTrain, "train"},
		{ModeSubway, "subway"},
		{ModeTram, "tram"},
		{ModeFerry, "ferry"},
		{TransportMode("hovercraft"), "car"},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.ToWire(); got != tt.want {
				t.Errorf("ToWire(%q) = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestTransportMode_ToWire_CoversAllModes(t *testing.T) {
	seen := make(map[string]TransportMode)
	for _, mode := range AllModes() {
		wire := mode.ToWire()
		if wire == "" {
			t.Errorf("mode %q maps to empty wire string", mode)
		}
		if prev, dup := seen[wire]; dup {
			t.Errorf("modes %q and %q map to the same wire string %q", prev, mode, wire)
		}
		seen[wire] = mode
	}
}

func TestTransportMode_IsValid(t *testing.T) {
	for _, mode := range AllModes() {
		if !mode.IsValid() {
			t.Errorf("expected %q to be valid", mode)
		}
	}
	if TransportMode("teleport").IsValid() {
		t.Error("expected unknown mode to be invalid")
	}
}

func TestCoordinate_Validate(t *testing.T) {
	tests := []struct {
		name    string
		coord   Coordinate
		wantErr bool
	}{
		{"valid", Coordinate{Lat: 53.3498, Lon: -6.2603}, false},
		{"lat too high", Coordinate{Lat: 90.1, Lon: 0}, true},
		{"lat too low", Coordinate{Lat: -90.1, Lon: 0}, true},
		{"lon too high", Coordinate{Lat: 0, Lon: 180.1}, true},
		{"lon too low", Coordinate{Lat: 0, Lon: -180.1}, true},
		{"boundary", Coordinate{Lat: 90, Lon: -180}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.coord.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCoordinates) {
				t.Errorf("expected ErrInvalidCoordinates, got %v", err)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	err := &Error{
		Provider: "here",
		Code:     "NO_ROUTE",
		Message:  "no route found",
		Err:      ErrNoRouteFound,
	}

	if !errors.Is(err, ErrNoRouteFound) {
		t.Error("expected errors.Is to match ErrNoRouteFound")
	}
	if err.IsRetryable() {
		t.Error("no-route errors must not be retryable")
	}

	retryable := &Error{Err: ErrProviderUnavailable, Message: "down"}
	if !retryable.IsRetryable() {
		t.Error("provider-unavailable errors must be retryable")
	}
}
