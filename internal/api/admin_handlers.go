package api

import (
	"net/http"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/entities"
	apperrors "carwash/internal/errors"
	"carwash/internal/service"

	"github.com/gorilla/mux"
)

type AdminHandler struct {
	Service      *service.AdminService
	Reservations *service.ReservationService
}

func NewAdminHandler(svc *service.AdminService, reservations *service.ReservationService) *AdminHandler {
	return &AdminHandler{Service: svc, Reservations: reservations}
}

var staffTransitions = map[string]carwash.Transition{
	"start":    carwash.StartWash,
	"complete": carwash.CompleteWash,
	"paid":     carwash.MarkPaid,
	"done":     carwash.MarkDone,
}

func (h *AdminHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reservations, err := h.Service.ListReservations(r.Context(), q.Get("date"), q.Get("state"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationsList(reservations))
}

// Transition handles POST /admin/reservations/{id}/{transition}.
func (h *AdminHandler) Transition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	t, ok := staffTransitions[vars["transition"]]
	if !ok {
		writeError(w, r, apperrors.ErrNotFound.Withf("unknown transition %q", vars["transition"]))
		return
	}
	var req entities.TransitionRequest
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	res, err := h.Reservations.StaffTransition(r.Context(), vars["id"], actor(r), t, req.CarwashComment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(*res))
}

func (h *AdminHandler) ListBlockers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := h.Reservations.Validator.Allocator.Location
	from, err := parseFrom(q.Get("from"), loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := parseFrom(q.Get("to"), loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	blockers, err := h.Service.ListBlockers(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if blockers == nil {
		blockers = []carwash.Blocker{}
	}
	writeJSON(w, http.StatusOK, blockers)
}

func (h *AdminHandler) CreateBlocker(w http.ResponseWriter, r *http.Request) {
	var req entities.BlockerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Service.CreateBlocker(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *AdminHandler) DeleteBlocker(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteBlocker(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Blocker deleted"})
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
