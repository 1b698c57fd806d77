package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/postflowhq/carousel-service/internal/instagram"
	"github.com/postflowhq/carousel-service/internal/types"
	"github.com/postflowhq/carousel-service/internal/utils/response"
)

// Orchestrator publishes pre-hosted images as a carousel.
type Orchestrator interface {
	Publish(ctx context.Context, caption string, mediaURLs []string, enhancedCaption string) (*instagram.PublishResult, error)
}

// Pipeline runs the full render-upload-publish pipeline for post content.
type Pipeline interface {
	PublishContent(ctx context.Context, content types.PostContent) (*instagram.PublishResult, error)
}

// Carousel handles publishing already-hosted image URLs
// @Summary Publish a carousel from hosted image URLs
// @Description Runs the three-phase Graph API publish protocol for the given images
// @Tags publish
// @Accept json
// @Produce json
// @Param request body types.PublishRequest true "Carousel content"
// @Success 200 {object} instagram.PublishResult "Carousel published"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 500 {object} response.Response "Publish failed"
// @Security BearerAuth
// @Router /publish [post]
func Carousel(orchestrator Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PublishRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(req)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		result, err := orchestrator.Publish(r.Context(), req.Caption, req.MediaURLs, req.EnhancedCaption)
		if err != nil {
			response.WriteJSON(w, publishErrorStatus(err), response.GeneralError(err))
			return
		}
		slog.Info("Carousel published via API", slog.String("post_id", result.PostID))

		response.WriteJSON(w, http.StatusOK, result)
	}
}

// Content handles publishing raw post content through the full pipeline
// @Summary Render and publish post content as a carousel
// @Description Renders slides from the content, uploads them and publishes the carousel
// @Tags publish
// @Accept json
// @Produce json
// @Param content body types.PostContent true "Post content"
// @Success 200 {object} instagram.PublishResult "Carousel published"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 500 {object} response.Response "Publish failed"
// @Security BearerAuth
// @Router /publish/content [post]
func Content(pipeline Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var content types.PostContent

		err := json.NewDecoder(r.Body).Decode(&content)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(content)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		result, err := pipeline.PublishContent(r.Context(), content)
		if err != nil {
			response.WriteJSON(w, publishErrorStatus(err), response.GeneralError(err))
			return
		}

		response.WriteJSON(w, http.StatusOK, result)
	}
}

// publishErrorStatus maps orchestrator failures to HTTP statuses: caller
// mistakes are 400s, everything else is a 500.
func publishErrorStatus(err error) int {
	if errors.Is(err, instagram.ErrNoImages) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
