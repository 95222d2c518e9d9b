package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/trip-dashboard/internal/config"
	"github.com/ginjaninja78/trip-dashboard/internal/converter"
	"github.com/ginjaninja78/trip-dashboard/internal/dashboard"
	"github.com/ginjaninja78/trip-dashboard/internal/export"
	"github.com/ginjaninja78/trip-dashboard/internal/format"
	"github.com/ginjaninja78/trip-dashboard/internal/trips"
	"github.com/ginjaninja78/trip-dashboard/internal/xmlwriter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// RESPONSES
// =============================================================================

type summaryResponse struct {
	Source   string          `json:"source"`
	Days     int             `json:"days"`
	Trips    int             `json:"trips"`
	TotalEUR decimal.Decimal `json:"totalEur"`
	AvgEUR   decimal.Decimal `json:"avgEur"`
	Total    string          `json:"total"`
	Average  string          `json:"average"`
	Status   string          `json:"status"`
}

type dayResponse struct {
	DateKey   string       `json:"dateKey"`
	Label     string       `json:"label"`
	TripCount int          `json:"tripCount"`
	Totals    trips.Totals `json:"totals"`
	Total     string       `json:"total"`
}

type tripRow struct {
	Number int `json:"number"`
	*trips.Trip
	Summary string `json:"summary"`
	Total   string `json:"total"`
}

type dayDetailResponse struct {
	dayResponse
	Breakdown trips.Breakdown `json:"breakdown"`
	Trips     []tripRow       `json:"trips"`
}

type mapResponse struct {
	*dashboard.MapView
	GeoJSON dashboard.FeatureCollection `json:"geojson"`
}

type nearestResponse struct {
	Endpoint string          `json:"endpoint"`
	Route    dashboard.Route `json:"route"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// HANDLERS
// =============================================================================

// Health reports that the server is up.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": config.Version})
}

// Summary returns the KPIs of the loaded data.
func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summary())
}

func (s *Server) summary() summaryResponse {
	k := s.session.KPIs()
	resp := summaryResponse{
		Source:   s.session.Source(),
		Days:     k.Days,
		Trips:    k.Trips,
		TotalEUR: k.TotalEUR,
		AvgEUR:   k.AvgEUR.Round(2),
		Total:    format.EUR(k.TotalEUR),
		Average:  format.EUR(k.AvgEUR),
	}
	if k.Days > 0 {
		resp.Status = k.LoadStatus()
	}
	return resp
}

// ListDays returns the loaded days, newest first.
func (s *Server) ListDays(w http.ResponseWriter, r *http.Request) {
	days := s.session.Days()
	resp := make([]dayResponse, 0, len(days))
	for _, day := range days {
		resp = append(resp, newDayResponse(day))
	}
	writeJSON(w, http.StatusOK, resp)
}

func newDayResponse(day *trips.Day) dayResponse {
	return dayResponse{
		DateKey:   day.DateKey,
		Label:     format.Day(day.DateKey),
		TripCount: len(day.Trips),
		Totals:    day.Totals,
		Total:     format.EUR(day.Totals.EUR),
	}
}

// GetDay returns the numbered trip table and breakdown of one day.
func (s *Server) GetDay(w http.ResponseWriter, r *http.Request) {
	day, err := s.session.Day(mux.Vars(r)["date"])
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	resp := dayDetailResponse{
		dayResponse: newDayResponse(day),
		Breakdown:   day.Breakdown(),
		Trips:       make([]tripRow, 0, len(day.Trips)),
	}
	for i, trip := range day.Trips {
		resp.Trips = append(resp.Trips, tripRow{
			Number:  i + 1,
			Trip:    trip,
			Summary: format.Transactions(trip.Transactions),
			Total:   format.EUR(trip.TotalEUR),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDayMap selects a day and returns its map once every address has been
// resolved. A newer selection made meanwhile answers 409.
func (s *Server) GetDayMap(w http.ResponseWriter, r *http.Request) {
	view, err := s.session.SelectDay(r.Context(), mux.Vars(r)["date"])
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapResponse{MapView: view, GeoJSON: view.GeoJSON()})
}

// NearestTrip returns the plotted trip closest to a map point in the
// committed view of the day.
func (s *Server) NearestTrip(w http.ResponseWriter, r *http.Request) {
	dateKey := mux.Vars(r)["date"]
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon must be numbers")
		return
	}

	view, ok := s.session.CurrentView()
	if !ok || view.DateKey != dateKey {
		writeError(w, http.StatusNotFound, "no map has been rendered for this day")
		return
	}
	route, endpoint, ok := view.Nearest(lat, lon)
	if !ok {
		writeError(w, http.StatusNotFound, "no trips are plotted for this day")
		return
	}
	writeJSON(w, http.StatusOK, nearestResponse{Endpoint: endpoint, Route: route})
}

// DayMapKML returns the committed map view of the day as a KML document.
func (s *Server) DayMapKML(w http.ResponseWriter, r *http.Request) {
	view, ok := s.session.CurrentView()
	if !ok || view.DateKey != mux.Vars(r)["date"] {
		writeError(w, http.StatusNotFound, "no map has been rendered for this day")
		return
	}

	data, err := xmlwriter.Generate(view)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", xmlwriter.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "trips-"+view.DateKey+".kml"))
	w.Write(data)
}

// Upload replaces the session's data with an uploaded CSV or XLSX export.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Expected a file in the \"file\" form field.")
		return
	}
	defer file.Close()

	result, err := s.converter.Convert(header.Filename, file)
	if err != nil {
		s.logger.Debug("Rejected upload", "file", header.Filename, "error", err)
		writeError(w, http.StatusBadRequest, converter.UserMessage(err))
		return
	}

	s.session.Load(result.Source, result.Days)
	writeJSON(w, http.StatusOK, s.summary())
}

// Export streams the loaded data as an XLSX workbook.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	days := s.session.Days()
	if len(days) == 0 {
		writeError(w, http.StatusNotFound, "no trips are loaded")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="trips.xlsx"`)
	if err := export.WriteWorkbook(w, days); err != nil {
		s.logger.Error("Failed to stream workbook", "error", err)
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrUnknownDay):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Debug("Request ended early", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
