package weather

import (
	"errors"
	"fmt"
	"net/http"
)

// Fetch failure classes, tested with errors.Is.
var (
	ErrNoAPIKey         = errors.New("no openweathermap api key configured")
	ErrInvalidAPIKey    = errors.New("openweathermap rejected the api key")
	ErrRateLimited      = errors.New("openweathermap rate limit reached")
	ErrLocationNotFound = errors.New("openweathermap location not found")
	ErrProvider         = errors.New("openweathermap request failed")
)

// ProviderError is a non-2xx response from the weather provider.
type ProviderError struct {
	StatusCode int
	Message    string // provider's "message" field, may be empty
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// classify maps a provider failure onto one of the fetch failure classes,
// keeping the original error in the chain.
func classify(err error) error {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return fmt.Errorf("%w: %w", ErrProvider, err)
	}
	switch pe.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrInvalidAPIKey, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrLocationNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrProvider, err)
	}
}

// Message renders the German text shown to dashboard users for a fetch error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoAPIKey):
		return "Kein API-Schlüssel konfiguriert. Bitte einen OpenWeatherMap API-Schlüssel in den Einstellungen hinterlegen."
	case errors.Is(err, ErrInvalidAPIKey):
		return "Ungültiger API-Schlüssel. Bitte den OpenWeatherMap API-Schlüssel in den Einstellungen überprüfen."
	case errors.Is(err, ErrRateLimited):
		return "API-Limit erreicht. Bitte in ca. 10 Minuten erneut versuchen."
	case errors.Is(err, ErrLocationNotFound):
		return "Standort nicht gefunden. Bitte die Postleitzahl in den Einstellungen überprüfen."
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return "Fehler beim Abrufen der Wetterdaten: " + pe.Message
	}
	return "Fehler beim Abrufen der Wetterdaten."
}
