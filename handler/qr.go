package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

// ShareQR handles GET /qr?path=<dashboard address> and encodes the public
// URL of that address as a PNG QR code.
// @Summary Share QR code
// @Description Generates a QR code for a dashboard address, including its view state
// @Tags System
// @Produce png
// @Param path query string true "Dashboard path with query" example("/sets?name=&author=")
// @Param size query int false "Image size in pixels (128-1024)" default(256)
// @Param level query string false "Error correction: low, medium, high, highest" default(medium)
// @Success 200 {file} binary "QR code image"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Router /qr [get]
func (h *DashboardHandler) ShareQR(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	path := query.Get("path")
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		SendJSONError(w, http.StatusBadRequest, errors.New("invalid path parameter"), "Path must be a dashboard address starting with /")
		return
	}

	// Get size parameter (default: 256, min: 128, max: 1024)
	size := 256
	if sizeStr := query.Get("size"); sizeStr != "" {
		parsedSize, err := strconv.Atoi(sizeStr)
		if err != nil {
			SendJSONError(w, http.StatusBadRequest, errors.New("invalid size parameter"), "Size must be a number")
			return
		}
		if parsedSize < 128 || parsedSize > 1024 {
			SendJSONError(w, http.StatusBadRequest, errors.New("size out of range"), "Size must be between 128 and 1024")
			return
		}
		size = parsedSize
	}

	level, ok := parseLevel(query.Get("level"))
	if !ok {
		SendJSONError(w, http.StatusBadRequest, errors.New("invalid level parameter"), "Level must be: low, medium, high, or highest")
		return
	}

	fullURL := strings.TrimRight(h.baseURL, "/") + path
	png, err := qrcode.Encode(fullURL, level, size)
	if err != nil {
		log.Error().Err(err).Str("url", fullURL).Msg("Failed to generate QR code")
		SendJSONError(w, http.StatusInternalServerError, err, "Failed to generate QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if _, err := w.Write(png); err != nil {
		log.Error().Err(err).Msg("Failed to write QR code response")
		return
	}

	log.Debug().Str("url", fullURL).Int("size", size).Msg("Share QR code generated")
}

// parseLevel maps the level parameter to a recovery level. Empty is medium.
func parseLevel(s string) (qrcode.RecoveryLevel, bool) {
	switch s {
	case "", "medium":
		return qrcode.Medium, true
	case "low":
		return qrcode.Low, true
	case "high":
		return qrcode.High, true
	case "highest":
		return qrcode.Highest, true
	}
	return qrcode.Medium, false
}
