package calendar

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/postflowhq/carousel-service/internal/types"
	"github.com/postflowhq/carousel-service/internal/utils/response"
)

// Store is the calendar surface the handlers need.
type Store interface {
	Add(item types.ScheduledItem) (types.ScheduledItem, error)
	List() []types.ScheduledItem
}

// List returns the whole content calendar
// @Summary List scheduled posts
// @Tags calendar
// @Produce json
// @Success 200 {array} types.ScheduledItem "Calendar items"
// @Security BearerAuth
// @Router /calendar [get]
func List(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Calendar fetched successfully", store.List()))
	}
}

// Add schedules a new post
// @Summary Schedule a post
// @Description Add a pending item to the content calendar
// @Tags calendar
// @Accept json
// @Produce json
// @Param item body types.ScheduledItem true "Scheduled item"
// @Success 201 {object} types.ScheduledItem "Item scheduled"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 500 {object} response.Response "Internal server error"
// @Security BearerAuth
// @Router /calendar [post]
func Add(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item types.ScheduledItem

		err := json.NewDecoder(r.Body).Decode(&item)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(item)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		added, err := store.Add(item)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		slog.Info("Post scheduled", slog.String("item_id", added.ID), slog.String("date", added.Date))

		response.WriteJSON(w, http.StatusCreated, added)
	}
}
