package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/litrev/internal/domain"
)

// ReviewDefaults fills request fields the client left unset.
type ReviewDefaults struct {
	NumPapers int
	Model     string
}

type CreateReviewInput struct {
	Body struct {
		Topic     string `json:"topic" minLength:"1" maxLength:"500" doc:"Literature review topic"`
		NumPapers int    `json:"num_papers,omitempty" minimum:"0" maximum:"20" doc:"Target number of papers (0 uses the server default)"`
		Model     string `json:"model,omitempty" maxLength:"100" doc:"Model override for this review"`
	}
}

type CreateReviewOutput struct {
	Body *domain.ReviewSession
}

type GetReviewInput struct {
	ID uuid.UUID `path:"id" doc:"Review session ID"`
}

type GetReviewOutput struct {
	Body *domain.ReviewSession
}

type ListReviewsInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"200" default:"20" doc:"Max results"`
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Offset for pagination"`
}

type ListReviewsOutput struct {
	Body []*domain.ReviewSession
}

type DeleteReviewInput struct {
	ID uuid.UUID `path:"id" doc:"Review session ID"`
}

type DeleteReviewOutput struct{}

func RegisterReviewRoutes(api huma.API, store SessionStore, launcher ReviewLauncher, defaults ReviewDefaults) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-review",
		Method:        http.MethodPost,
		Path:          "/reviews",
		Summary:       "Start a literature review",
		Tags:          []string{"Reviews"},
		DefaultStatus: http.StatusCreated,
	}, func(_ context.Context, input *CreateReviewInput) (*CreateReviewOutput, error) {
		req := domain.ReviewRequest{
			Topic:     input.Body.Topic,
			NumPapers: input.Body.NumPapers,
			Model:     input.Body.Model,
		}
		if req.NumPapers == 0 {
			req.NumPapers = defaults.NumPapers
		}
		if req.Model == "" {
			req.Model = defaults.Model
		}

		session := store.CreateSession(req)
		launcher.Launch(session.ID)

		return &CreateReviewOutput{Body: session}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-review",
		Method:      http.MethodGet,
		Path:        "/reviews/{id}",
		Summary:     "Get a review session by ID",
		Tags:        []string{"Reviews"},
	}, func(_ context.Context, input *GetReviewInput) (*GetReviewOutput, error) {
		session, err := store.GetSession(input.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("review session not found")
			}
			return nil, huma.Error500InternalServerError("failed to get review session", err)
		}

		return &GetReviewOutput{Body: session}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-reviews",
		Method:      http.MethodGet,
		Path:        "/reviews",
		Summary:     "List review sessions, newest first",
		Tags:        []string{"Reviews"},
	}, func(_ context.Context, input *ListReviewsInput) (*ListReviewsOutput, error) {
		return &ListReviewsOutput{Body: store.ListSessions(input.Limit, input.Offset)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-review",
		Method:        http.MethodDelete,
		Path:          "/reviews/{id}",
		Summary:       "Delete a review session",
		Tags:          []string{"Reviews"},
		DefaultStatus: http.StatusNoContent,
	}, func(_ context.Context, input *DeleteReviewInput) (*DeleteReviewOutput, error) {
		if !store.DeleteSession(input.ID) {
			return nil, huma.Error404NotFound("review session not found")
		}
		return &DeleteReviewOutput{}, nil
	})
}
