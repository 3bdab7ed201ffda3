package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"carwash/internal/carwash"
	"carwash/internal/entities"
	apperrors "carwash/internal/errors"
	"carwash/internal/service"
	"carwash/internal/utils"

	"github.com/gorilla/mux"
)

type UserReservationHandler struct {
	Service *service.ReservationService
}

func NewUserReservationHandler(svc *service.ReservationService) *UserReservationHandler {
	return &UserReservationHandler{Service: svc}
}

func (h *UserReservationHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.GetServices())
}

func (h *UserReservationHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.GetSlots())
}

// FreeSlots handles GET /api/slots/free?from=&count=&services=1,2
func (h *UserReservationHandler) FreeSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseFrom(q.Get("from"), h.Service.Validator.Allocator.Location)
	if err != nil {
		writeError(w, r, err)
		return
	}
	count := 0
	if c := q.Get("count"); c != "" {
		count, err = strconv.Atoi(c)
		if err != nil || count < 0 || count > 50 {
			writeError(w, r, apperrors.ErrInvalidInput.Withf("count must be between 0 and 50"))
			return
		}
	}
	services, err := parseServices(q.Get("services"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Service.GetNextFreeSlots(r.Context(), from, count, services)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req entities.ReservationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.Submit(r.Context(), actor(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entities.NewReservationResponse(*res))
}

func (h *UserReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.ListMyReservations(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationsList(res))
}

func (h *UserReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.GetReservation(r.Context(), mux.Vars(r)["id"], actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(*res))
}

func (h *UserReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Cancel(r.Context(), mux.Vars(r)["id"], actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(*res))
}

func (h *UserReservationHandler) ConfirmDropoff(w http.ResponseWriter, r *http.Request) {
	var req entities.DropoffRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.ConfirmDropoff(r.Context(), mux.Vars(r)["id"], actor(r), strings.TrimSpace(req.Location))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.NewReservationResponse(*res))
}

// PayReservation opens a checkout for a private wash waiting for payment.
func (h *UserReservationHandler) PayReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	url, err := h.Service.PaymentURL(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.GetReservation(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := entities.NewReservationResponse(*res)
	resp.PaymentURL = url
	writeJSON(w, http.StatusOK, resp)
}

func parseFrom(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(utils.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, apperrors.ErrInvalidInput.Withf("from must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

func parseServices(s string) ([]carwash.ServiceType, error) {
	if s == "" {
		return nil, nil
	}
	var out []carwash.ServiceType
	for _, part := range strings.Split(s, ",") {
		code, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, apperrors.ErrInvalidInput.Withf("invalid service code %q", part)
		}
		out = append(out, carwash.ServiceType(code))
	}
	return out, nil
}
