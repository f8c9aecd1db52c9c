package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Danyokkk/cybus/query"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

func (s *Server) handleStops(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListStops())
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListRoutes())
}

func (s *Server) handleRouteDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.RouteDetail(chi.URLParam(r, "routeId"))
	if errors.Is(err, query.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Route not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTimetable(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.StopTimetable(chi.URLParam(r, "stopId"), r.URL.Query().Get("date"))
	switch {
	case errors.Is(err, query.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "Invalid date, expected YYYYMMDD")
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "Stop not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) handleVehiclePositions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, s.svc.VehiclePositions())
}

func (s *Server) handleSearchRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.SearchRoutes(r.URL.Query().Get("q")))
}

func (s *Server) handleNearbyStops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}
	var radius float64
	if v := q.Get("radius_m"); v != "" {
		var err error
		if radius, err = strconv.ParseFloat(v, 64); err != nil {
			writeError(w, http.StatusBadRequest, "radius_m must be a number")
			return
		}
	}
	stops, err := s.svc.NearbyStops(lat, lon, radius)
	if err != nil {
		writeError(w, http.StatusBadRequest, "coordinates or radius out of range")
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	opts, err := s.svc.PlanTrip(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	switch {
	case errors.Is(err, query.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "from and to must be two different stops")
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "Stop not found")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, opts)
	}
}
