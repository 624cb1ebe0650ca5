package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

const maxSettingsBody = 4 << 10

// settingsResponse never carries the full API key.
type settingsResponse struct {
	OpenWeatherAPIKey string     `json:"openweather_api_key"`
	HasAPIKey         bool       `json:"has_api_key"`
	PostalCode        string     `json:"postal_code"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
}

func newSettingsResponse(s domain.Settings) settingsResponse {
	return settingsResponse{
		OpenWeatherAPIKey: maskKey(s.OpenWeatherAPIKey),
		HasAPIKey:         s.OpenWeatherAPIKey != "",
		PostalCode:        s.PostalCode,
		LastUpdated:       s.LastUpdated,
	}
}

// maskKey keeps the last four characters of a key.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.deps.Settings.GetSettings(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd domain.SettingsUpdate
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "Ungültige Anfrage.")
		return
	}
	upd.OpenWeatherAPIKey = trimmed(upd.OpenWeatherAPIKey)
	upd.PostalCode = trimmed(upd.PostalCode)

	if err := s.validate.Struct(upd); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	settings, err := s.deps.Settings.UpdateSettings(r.Context(), upd)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.logger.Info("settings updated",
		"api_key_changed", upd.OpenWeatherAPIKey != nil,
		"postal_code_changed", upd.PostalCode != nil,
	)
	writeJSON(w, http.StatusOK, newSettingsResponse(settings))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "PostalCode":
			return "Die Postleitzahl muss aus genau 5 Ziffern bestehen."
		case "OpenWeatherAPIKey":
			return "Der API-Schlüssel darf nur Buchstaben und Ziffern enthalten."
		}
	}
	return "Ungültige Einstellungen."
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
