package model

type Post struct {
	ID      int64
	UserID  int64
	Title   string
	Body    string
	Version int64
}
