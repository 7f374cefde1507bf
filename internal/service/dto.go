package service

import (
	"fmt"

	"postsapi/internal/adapter/out/storage"
	"postsapi/internal/model"
	"postsapi/pkg/pagination"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type CreatePostRequest struct {
	// ID is optional; zero lets the store assign one.
	ID     int64 `validate:"gte=0"`
	UserID int64
	Title  string `validate:"required"`
	Body   string `validate:"required"`
}

type UpdatePostRequest struct {
	UserID  int64
	Title   string `validate:"required"`
	Body    string `validate:"required"`
	Version *int64
}

// PatchPostRequest carries only the fields the caller wants to change.
type PatchPostRequest struct {
	UserID  *int64
	Title   *string
	Body    *string
	Version *int64
}

type postContent struct {
	Title string `validate:"required"`
	Body  string `validate:"required"`
}

func validateRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func validatePost(p model.Post) error {
	return validateRequest(postContent{Title: p.Title, Body: p.Body})
}

func validatePostID(postID int64) error {
	if postID <= 0 {
		return fmt.Errorf("postID must be > 0: %w", ErrInvalidRequest)
	}
	return nil
}

func (r PatchPostRequest) apply(p model.Post) model.Post {
	if r.UserID != nil {
		p.UserID = *r.UserID
	}
	if r.Title != nil {
		p.Title = *r.Title
	}
	if r.Body != nil {
		p.Body = *r.Body
	}
	return p
}

func toGetPostsParams(in pagination.PageRequest) (storage.GetPostsParams, int, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultPostsLimit
	}
	limit = min(limit, MaxPostsLimit)

	after, err := pagination.Decode(in.AfterCursor)
	if err != nil {
		return storage.GetPostsParams{}, 0, fmt.Errorf("error decoding after-cursor: %w: %v", ErrInvalidRequest, err)
	}

	params := storage.GetPostsParams{Limit: limit + 1}
	if after != nil {
		params.AfterID = after.ID
	}
	return params, limit, nil
}
