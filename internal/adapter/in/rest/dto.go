package rest

import (
	"postsapi/internal/model"
	"postsapi/internal/service"
)

// postRequest is the body of POST and PUT. A null or absent version skips
// the optimistic check on PUT.
type postRequest struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"userId"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Version *int64 `json:"version"`
}

type patchRequest struct {
	UserID  *int64  `json:"userId"`
	Title   *string `json:"title"`
	Body    *string `json:"body"`
	Version *int64  `json:"version"`
}

type postResponse struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"userId"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	Version int64  `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (r postRequest) toCreate() service.CreatePostRequest {
	return service.CreatePostRequest{
		ID:     r.ID,
		UserID: r.UserID,
		Title:  r.Title,
		Body:   r.Body,
	}
}

func (r postRequest) toUpdate() service.UpdatePostRequest {
	return service.UpdatePostRequest{
		UserID:  r.UserID,
		Title:   r.Title,
		Body:    r.Body,
		Version: r.Version,
	}
}

func (r patchRequest) toPatch() service.PatchPostRequest {
	return service.PatchPostRequest{
		UserID:  r.UserID,
		Title:   r.Title,
		Body:    r.Body,
		Version: r.Version,
	}
}

func mapPost(p model.Post) postResponse {
	return postResponse{
		ID:      p.ID,
		UserID:  p.UserID,
		Title:   p.Title,
		Body:    p.Body,
		Version: p.Version,
	}
}

func mapPosts(posts []model.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, mapPost(p))
	}
	return out
}
