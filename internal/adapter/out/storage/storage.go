package storage

import "postsapi/internal/model"

// GetPostsParams selects posts in id order. Zero values mean "from the start"
// and "no limit".
type GetPostsParams struct {
	AfterID int64
	Limit   int
}

type UpdatePostParams struct {
	Post model.Post
	// ExpectedVersion, when set, makes the update conditional on the stored version.
	ExpectedVersion *int64
}
