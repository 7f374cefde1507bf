package tableinfo

const (
	PostsTableName = "posts"

	PostIDColumn      = "id"
	PostUserIDColumn  = "user_id"
	PostTitleColumn   = "title"
	PostBodyColumn    = "body"
	PostVersionColumn = "version"
)

// PostColumns is the column order every post SELECT and RETURNING clause uses.
var PostColumns = []string{
	PostIDColumn,
	PostUserIDColumn,
	PostTitleColumn,
	PostBodyColumn,
	PostVersionColumn,
}
