package service

import (
	"context"
	"fmt"

	"postsapi/internal/adapter/out/storage"
	"postsapi/internal/model"
	"postsapi/pkg/logger"
	"postsapi/pkg/pagination"
)

const (
	DefaultPostsLimit = 50
	MaxPostsLimit     = 250
)

//go:generate mockgen -source=posts.go -destination=./post_storage_mock.go -package=service
type PostStorage interface {
	CreatePost(ctx context.Context, post model.Post) (model.Post, error)
	GetPostByID(ctx context.Context, postID int64) (model.Post, error)
	GetPosts(ctx context.Context, params storage.GetPostsParams) ([]model.Post, error)
	UpdatePost(ctx context.Context, params storage.UpdatePostParams) (model.Post, error)
	DeletePost(ctx context.Context, postID int64) (bool, error)
	CountPosts(ctx context.Context) (int64, error)
}

// TxManager runs fn in a transaction that storage calls made with the
// passed context join.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type PostService struct {
	postStorage PostStorage
	trManager   TxManager
}

func NewPostService(postStorage PostStorage, trManager TxManager) *PostService {
	return &PostService{
		postStorage: postStorage,
		trManager:   trManager,
	}
}

func (s *PostService) CreatePost(ctx context.Context, req CreatePostRequest) (model.Post, error) {
	if err := validateRequest(req); err != nil {
		return model.Post{}, err
	}
	return s.postStorage.CreatePost(ctx, model.Post{
		ID:     req.ID,
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
	})
}

func (s *PostService) GetPostByID(ctx context.Context, postID int64) (model.Post, error) {
	if err := validatePostID(postID); err != nil {
		return model.Post{}, err
	}
	p, err := s.postStorage.GetPostByID(ctx, postID)
	if err != nil {
		return model.Post{}, err
	}
	return p, nil
}

// GetPosts returns every post in id order.
func (s *PostService) GetPosts(ctx context.Context) ([]model.Post, error) {
	return s.postStorage.GetPosts(ctx, storage.GetPostsParams{})
}

func (s *PostService) GetPostsPage(ctx context.Context, in pagination.PageRequest) (pagination.Page[model.Post], error) {
	var page pagination.Page[model.Post]

	params, limit, err := toGetPostsParams(in)
	if err != nil {
		return page, err
	}

	posts, err := s.postStorage.GetPosts(ctx, params)
	if err != nil {
		return page, err
	}

	if len(posts) > limit {
		page.HasNextPage = true
		posts = posts[:limit]
	}

	page.Items = posts
	page.Count = len(posts)

	if page.HasNextPage {
		page.NextCursor = pagination.Cursor{ID: posts[len(posts)-1].ID}.Encode()
	}
	return page, nil
}

func (s *PostService) UpdatePost(ctx context.Context, postID int64, req UpdatePostRequest) (model.Post, error) {
	if err := validatePostID(postID); err != nil {
		return model.Post{}, err
	}
	if err := validateRequest(req); err != nil {
		return model.Post{}, err
	}

	var out model.Post
	err := s.trManager.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.postStorage.UpdatePost(ctx, storage.UpdatePostParams{
			Post: model.Post{
				ID:     postID,
				UserID: req.UserID,
				Title:  req.Title,
				Body:   req.Body,
			},
			ExpectedVersion: req.Version,
		})
		return err
	})
	if err != nil {
		return model.Post{}, err
	}
	return out, nil
}

func (s *PostService) PatchPost(ctx context.Context, postID int64, req PatchPostRequest) (model.Post, error) {
	if err := validatePostID(postID); err != nil {
		return model.Post{}, err
	}

	var out model.Post
	err := s.trManager.Do(ctx, func(ctx context.Context) error {
		current, err := s.postStorage.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}

		expected := current.Version
		if req.Version != nil {
			if *req.Version != current.Version {
				return fmt.Errorf("%w: version %d is stale, current is %d", ErrConflict, *req.Version, current.Version)
			}
			expected = *req.Version
		}

		merged := req.apply(current)
		if err := validatePost(merged); err != nil {
			return err
		}

		out, err = s.postStorage.UpdatePost(ctx, storage.UpdatePostParams{
			Post:            merged,
			ExpectedVersion: &expected,
		})
		return err
	})
	if err != nil {
		return model.Post{}, err
	}
	return out, nil
}

// DeletePost succeeds whether or not the post existed.
func (s *PostService) DeletePost(ctx context.Context, postID int64) error {
	if err := validatePostID(postID); err != nil {
		return err
	}
	deleted, err := s.postStorage.DeletePost(ctx, postID)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Debug("post delete", "post_id", postID, "deleted", deleted)
	return nil
}
