package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"postsapi/internal/adapter/out/storage"
	"postsapi/internal/model"
	"postsapi/internal/service"
)

type PostStorage struct {
	mu     sync.RWMutex
	byID   map[int64]model.Post
	nextID int64
}

func NewPostStorage() *PostStorage {
	return &PostStorage{
		byID:   make(map[int64]model.Post),
		nextID: 1,
	}
}

func (s *PostStorage) CreatePost(_ context.Context, in model.Post) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID == 0 {
		for {
			if _, taken := s.byID[s.nextID]; !taken {
				break
			}
			s.nextID++
		}
		in.ID = s.nextID
	}
	if _, ok := s.byID[in.ID]; ok {
		return model.Post{}, fmt.Errorf("%w: post %d already exists", service.ErrConflict, in.ID)
	}

	in.Version = 0
	s.byID[in.ID] = in
	if in.ID >= s.nextID {
		s.nextID = in.ID + 1
	}
	return in, nil
}

func (s *PostStorage) GetPostByID(_ context.Context, postID int64) (model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if post, ok := s.byID[postID]; ok {
		return post, nil
	}
	return model.Post{}, service.ErrNotFound
}

func (s *PostStorage) GetPosts(_ context.Context, params storage.GetPostsParams) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Post, 0, len(s.byID))
	for id, p := range s.byID {
		if id > params.AfterID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Post) int {
		return cmp.Compare(a.ID, b.ID)
	})

	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *PostStorage) UpdatePost(_ context.Context, params storage.UpdatePostParams) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[params.Post.ID]
	if !ok {
		return model.Post{}, service.ErrNotFound
	}
	if params.ExpectedVersion != nil && *params.ExpectedVersion != current.Version {
		return model.Post{}, fmt.Errorf("%w: version %d is stale, current is %d",
			service.ErrConflict, *params.ExpectedVersion, current.Version)
	}

	current.UserID = params.Post.UserID
	current.Title = params.Post.Title
	current.Body = params.Post.Body
	current.Version++
	s.byID[current.ID] = current
	return current, nil
}

func (s *PostStorage) DeletePost(_ context.Context, postID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byID[postID]
	delete(s.byID, postID)
	return ok, nil
}

func (s *PostStorage) CountPosts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.byID)), nil
}
