package api

import (
	"net/http"
	"time"

	"carbooker/internal/models"
)

func (s *Server) handleCars(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cars, meta, err := s.repo.ListCars(r.Context(), pageParams(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, cars, meta)
	case http.MethodPost:
		var car models.Car
		if err := decodeJSON(r, &car); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if car.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := s.repo.CreateCar(r.Context(), &car); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, car)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCarByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathID(r.URL.Path, "/api/v1/cars/")
	if !ok || action != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	car, err := s.repo.GetCar(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, car)
}

type packageDatesRequest struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		packages, meta, err := s.repo.ListPackages(r.Context(), pageParams(r), queryInt64(r, "car_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, packages, meta)
	case http.MethodPost:
		var pkg models.Package
		if err := decodeJSON(r, &pkg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if pkg.Name == "" || pkg.CarID == 0 {
			writeError(w, http.StatusBadRequest, "name and car_id are required")
			return
		}
		pkg.Available = true
		if err := s.repo.CreatePackage(r.Context(), &pkg); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, pkg)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handlePackageByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathID(r.URL.Path, "/api/v1/packages/")
	if !ok || action != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		pkg, err := s.repo.GetPackage(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, pkg)
	case http.MethodPut, http.MethodPatch:
		var req packageDatesRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.repo.UpdatePackageDates(r.Context(), id, req.StartDate, req.EndDate); err != nil {
			writeServiceError(w, err)
			return
		}
		pkg, err := s.repo.GetPackage(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusOK, pkg)
	case http.MethodDelete:
		if err := s.repo.DeactivatePackage(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeMessage(w, http.StatusOK, "package deactivated")
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		locations, meta, err := s.repo.ListLocations(r.Context(), pageParams(r), r.URL.Query().Get("search"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, locations, meta)
	case http.MethodPost:
		var loc models.Location
		if err := decodeJSON(r, &loc); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if loc.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := s.repo.CreateLocation(r.Context(), &loc); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, loc)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		users, meta, err := s.repo.ListUsers(r.Context(), pageParams(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writePage(w, users, meta)
	case http.MethodPost:
		var user models.User
		if err := decodeJSON(r, &user); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if user.Name == "" || user.Email == "" {
			writeError(w, http.StatusBadRequest, "name and email are required")
			return
		}
		if err := s.repo.CreateUser(r.Context(), &user); err != nil {
			writeServiceError(w, err)
			return
		}
		writeData(w, http.StatusCreated, user)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, action, ok := pathID(r.URL.Path, "/api/v1/users/")
	if !ok || action != "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	user, err := s.repo.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}
