package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"postsapi/internal/adapter/out/storage"
	"postsapi/internal/model"
	"postsapi/internal/service"
	"postsapi/pkg/tableinfo"

	sq "github.com/Masterminds/squirrel"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var ErrBuildingQuery = errors.New("error building sql-query")

type PostStorage struct {
	db     *sql.DB
	getter *trmsql.CtxGetter
}

func NewPostStorage(db *sql.DB, getter *trmsql.CtxGetter) *PostStorage {
	return &PostStorage{db: db, getter: getter}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.Version)
	return p, err
}

func returningPostColumns() string {
	return "RETURNING " + strings.Join(tableinfo.PostColumns, ", ")
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func (s *PostStorage) CreatePost(ctx context.Context, in model.Post) (model.Post, error) {
	columns := []string{
		tableinfo.PostUserIDColumn,
		tableinfo.PostTitleColumn,
		tableinfo.PostBodyColumn,
	}
	values := []any{in.UserID, in.Title, in.Body}
	if in.ID > 0 {
		columns = append([]string{tableinfo.PostIDColumn}, columns...)
		values = append([]any{in.ID}, values...)
	}

	query, args, err := sq.
		Insert(tableinfo.PostsTableName).
		Columns(columns...).
		Values(values...).
		Suffix(returningPostColumns()).
		ToSql()
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanPost(tr.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return model.Post{}, fmt.Errorf("%w: post %d already exists", service.ErrConflict, in.ID)
		}
		return model.Post{}, fmt.Errorf("exec error creating post: %w", err)
	}
	return out, nil
}

func (s *PostStorage) GetPostByID(ctx context.Context, postID int64) (model.Post, error) {
	query, args, err := sq.
		Select(tableinfo.PostColumns...).
		From(tableinfo.PostsTableName).
		Where(sq.Eq{tableinfo.PostIDColumn: postID}).
		ToSql()
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanPost(tr.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, service.ErrNotFound
		}
		return model.Post{}, fmt.Errorf("exec select post by id: %w", err)
	}
	return out, nil
}

func (s *PostStorage) GetPosts(ctx context.Context, params storage.GetPostsParams) ([]model.Post, error) {
	qb := sq.
		Select(tableinfo.PostColumns...).
		From(tableinfo.PostsTableName).
		OrderBy(tableinfo.PostIDColumn + " ASC")
	if params.AfterID > 0 {
		qb = qb.Where(sq.Gt{tableinfo.PostIDColumn: params.AfterID})
	}
	if params.Limit > 0 {
		qb = qb.Limit(uint64(params.Limit))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	rows, err := tr.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec error selecting posts: %w", err)
	}
	defer rows.Close()

	out := make([]model.Post, 0, max(params.Limit, 0))
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (s *PostStorage) UpdatePost(ctx context.Context, params storage.UpdatePostParams) (model.Post, error) {
	in := params.Post

	qb := sq.
		Update(tableinfo.PostsTableName).
		Set(tableinfo.PostUserIDColumn, in.UserID).
		Set(tableinfo.PostTitleColumn, in.Title).
		Set(tableinfo.PostBodyColumn, in.Body).
		Set(tableinfo.PostVersionColumn, sq.Expr(tableinfo.PostVersionColumn+" + 1")).
		Where(sq.Eq{tableinfo.PostIDColumn: in.ID})
	if params.ExpectedVersion != nil {
		qb = qb.Where(sq.Eq{tableinfo.PostVersionColumn: *params.ExpectedVersion})
	}

	query, args, err := qb.Suffix(returningPostColumns()).ToSql()
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanPost(tr.QueryRowContext(ctx, query, args...))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, fmt.Errorf("exec update post: %w", err)
	}

	current, err := s.GetPostByID(ctx, in.ID)
	if err != nil {
		return model.Post{}, err
	}
	if params.ExpectedVersion == nil {
		return model.Post{}, fmt.Errorf("exec update post %d: no row updated", in.ID)
	}
	return model.Post{}, fmt.Errorf("%w: version %d is stale, current is %d",
		service.ErrConflict, *params.ExpectedVersion, current.Version)
}

func (s *PostStorage) DeletePost(ctx context.Context, postID int64) (bool, error) {
	query, args, err := sq.
		Delete(tableinfo.PostsTableName).
		Where(sq.Eq{tableinfo.PostIDColumn: postID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	res, err := tr.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("exec delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostStorage) CountPosts(ctx context.Context) (int64, error) {
	query, args, err := sq.Select("COUNT(*)").From(tableinfo.PostsTableName).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	var n int64
	if err := tr.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("exec count posts: %w", err)
	}
	return n, nil
}
