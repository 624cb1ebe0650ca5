package http

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/couchcryptid/swim-forecast-service/internal/domain"
)

// maxUploadBytes caps CSV uploads.
const maxUploadBytes = 10 << 20

const (
	msgMissingFile = "Keine CSV-Datei im Feld \"file\" gefunden."
	msgTooLarge    = "Die Datei ist zu groß (maximal 10 MB)."
)

// handleImport accepts a multipart upload in field "file" or a raw CSV body.
func (s *Server) handleImport(kind domain.ImportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		body, err := uploadBody(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, domain.ImportResult{Message: msgTooLarge})
				return
			}
			writeJSON(w, http.StatusBadRequest, domain.ImportResult{Message: msgMissingFile})
			return
		}
		defer body.Close()

		var res domain.ImportResult
		if kind == domain.ImportWeather {
			res = s.deps.Importer.ImportWeatherData(r.Context(), body)
		} else {
			res = s.deps.Importer.ImportVisitorData(r.Context(), body)
		}

		status := http.StatusCreated
		if !res.Success {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, res)
	}
}

func uploadBody(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	return f, nil
}
