// Package seed loads the bundled sample posts into an empty store.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"postsapi/internal/model"
	"postsapi/internal/service"
	"postsapi/pkg/logger"
)

//go:embed posts.json
var postsJSON []byte

type postRecord struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Storage is the part of a post store the loader writes through.
type Storage interface {
	CreatePost(ctx context.Context, post model.Post) (model.Post, error)
	CountPosts(ctx context.Context) (int64, error)
}

// sequenceSyncer is implemented by stores whose id generator must be moved
// past explicitly inserted ids.
type sequenceSyncer interface {
	SyncIDSequence(ctx context.Context) error
}

// Posts decodes the bundled dataset.
func Posts() ([]model.Post, error) {
	var records []postRecord
	if err := json.Unmarshal(postsJSON, &records); err != nil {
		return nil, fmt.Errorf("decode seed posts: %w", err)
	}

	posts := make([]model.Post, 0, len(records))
	for _, r := range records {
		posts = append(posts, model.Post{
			ID:     r.ID,
			UserID: r.UserID,
			Title:  r.Title,
			Body:   r.Body,
		})
	}
	return posts, nil
}

type Loader struct {
	storage   Storage
	trManager service.TxManager
}

func NewLoader(storage Storage, trManager service.TxManager) *Loader {
	return &Loader{
		storage:   storage,
		trManager: trManager,
	}
}

// Load inserts the dataset in one transaction when the store holds no posts
// and reports how many rows were written.
func (l *Loader) Load(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)

	posts, err := Posts()
	if err != nil {
		return 0, err
	}

	inserted := 0
	err = l.trManager.Do(ctx, func(ctx context.Context) error {
		n, err := l.storage.CountPosts(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info("store not empty, skipping seed", "posts", n)
			return nil
		}

		for _, p := range posts {
			if _, err := l.storage.CreatePost(ctx, p); err != nil {
				return fmt.Errorf("seed post %d: %w", p.ID, err)
			}
		}
		inserted = len(posts)

		if s, ok := l.storage.(sequenceSyncer); ok {
			return s.SyncIDSequence(ctx)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		log.Info("seeded posts", "count", inserted)
	}
	return inserted, nil
}
