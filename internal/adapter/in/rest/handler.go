package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"postsapi/internal/model"
	"postsapi/internal/service"
	"postsapi/pkg/pagination"

	"github.com/labstack/echo/v4"
)

const HeaderNextCursor = "X-Next-Cursor"

type PostService interface {
	CreatePost(ctx context.Context, req service.CreatePostRequest) (model.Post, error)
	GetPostByID(ctx context.Context, postID int64) (model.Post, error)
	GetPosts(ctx context.Context) ([]model.Post, error)
	GetPostsPage(ctx context.Context, in pagination.PageRequest) (pagination.Page[model.Post], error)
	UpdatePost(ctx context.Context, postID int64, req service.UpdatePostRequest) (model.Post, error)
	PatchPost(ctx context.Context, postID int64, req service.PatchPostRequest) (model.Post, error)
	DeletePost(ctx context.Context, postID int64) error
}

type PostHandler struct {
	posts PostService
}

func NewPostHandler(posts PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

func (h *PostHandler) register(g *echo.Group) {
	g.GET("", h.ListPosts)
	g.POST("", h.CreatePost)
	g.GET("/:id", h.GetPost)
	g.PUT("/:id", h.UpdatePost)
	g.PATCH("/:id", h.PatchPost)
	g.DELETE("/:id", h.DeletePost)
}

// ListPosts handles GET /api/posts. Without query parameters it returns every
// post; with limit or after it returns one page and sets X-Next-Cursor when
// more posts follow.
func (h *PostHandler) ListPosts(c echo.Context) error {
	ctx := c.Request().Context()

	rawLimit, after := c.QueryParam("limit"), c.QueryParam("after")
	if rawLimit == "" && after == "" {
		posts, err := h.posts.GetPosts(ctx)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(http.StatusOK, mapPosts(posts))
	}

	req := pagination.PageRequest{}
	if rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 0 {
			return handleError(c, fmt.Errorf("%w: invalid limit %q", service.ErrInvalidRequest, rawLimit))
		}
		req.Limit = limit
	}
	if after != "" {
		req.AfterCursor = &after
	}

	page, err := h.posts.GetPostsPage(ctx, req)
	if err != nil {
		return handleError(c, err)
	}
	if page.NextCursor != nil {
		c.Response().Header().Set(HeaderNextCursor, *page.NextCursor)
	}
	return c.JSON(http.StatusOK, mapPosts(page.Items))
}

func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, mapPost(post))
}

func (h *PostHandler) CreatePost(c echo.Context) error {
	var req postRequest
	if err := bindBody(c, &req); err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.CreatePost(c.Request().Context(), req.toCreate())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, mapPost(post))
}

// UpdatePost handles PUT: userId, title and body are replaced as a whole.
func (h *PostHandler) UpdatePost(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return handleError(c, err)
	}

	var req postRequest
	if err := bindBody(c, &req); err != nil {
		return handleError(c, err)
	}
	if req.ID != 0 && req.ID != postID {
		return handleError(c, fmt.Errorf("%w: body id %d does not match path id %d",
			service.ErrInvalidRequest, req.ID, postID))
	}

	post, err := h.posts.UpdatePost(c.Request().Context(), postID, req.toUpdate())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, mapPost(post))
}

func (h *PostHandler) PatchPost(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return handleError(c, err)
	}

	var req patchRequest
	if err := bindBody(c, &req); err != nil {
		return handleError(c, err)
	}

	post, err := h.posts.PatchPost(c.Request().Context(), postID, req.toPatch())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, mapPost(post))
}

// DeletePost answers 204 whether or not the post existed.
func (h *PostHandler) DeletePost(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return handleError(c, err)
	}

	if err := h.posts.DeletePost(c.Request().Context(), postID); err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func parsePostID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid post id %q", service.ErrInvalidRequest, raw)
	}
	return id, nil
}

// bindBody decodes the JSON body. Binder errors that already carry a status
// other than 400 (413 over the body limit, 415 without a JSON content type)
// are returned as is.
func bindBody(c echo.Context, dst any) error {
	err := (&echo.DefaultBinder{}).BindBody(c, dst)
	if err == nil {
		return nil
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) && httpErr.Code != http.StatusBadRequest {
		return httpErr
	}
	return fmt.Errorf("%w: invalid request body: %v", service.ErrInvalidRequest, err)
}
