package pagination

type PageRequest struct {
	AfterCursor *string
	Limit       int
}

type Page[T any] struct {
	Count       int
	Items       []T
	NextCursor  *string
	HasNextPage bool
}
