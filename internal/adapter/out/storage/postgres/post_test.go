package postgres

import (
	"context"
	"errors"
	"testing"

	"postsapi/internal/adapter/out/storage"
	"postsapi/internal/adapter/out/storage/postgres/mocks"
	"postsapi/internal/model"
	"postsapi/internal/service"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var postColumns = []string{"id", "user_id", "title", "body", "version"}

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

func postRow(p model.Post) fakeRow {
	return fakeRow{
		// id, user_id, title, body, version
		scan: func(dest ...any) error {
			*(dest[0].(*int64)) = p.ID
			*(dest[1].(*int64)) = p.UserID
			*(dest[2].(*string)) = p.Title
			*(dest[3].(*string)) = p.Body
			*(dest[4].(*int64)) = p.Version
			return nil
		},
	}
}

func errRow(err error) fakeRow {
	return fakeRow{scan: func(...any) error { return err }}
}

func int64Ptr(v int64) *int64 { return &v }

func Test_getPostsQueryBuilder(t *testing.T) {
	tests := []struct {
		name       string
		params     storage.GetPostsParams
		wantSQL    string
		wantArgs   []any
		notContain []string
	}{
		{
			name:       "everything",
			params:     storage.GetPostsParams{},
			wantSQL:    "SELECT id, user_id, title, body, version FROM posts ORDER BY id ASC",
			notContain: []string{"WHERE", "LIMIT"},
		},
		{
			name:     "after and limit",
			params:   storage.GetPostsParams{AfterID: 10, Limit: 5},
			wantSQL:  "SELECT id, user_id, title, body, version FROM posts WHERE id > $1 ORDER BY id ASC LIMIT 5",
			wantArgs: []any{int64(10)},
		},
		{
			name:       "limit only",
			params:     storage.GetPostsParams{Limit: 3},
			wantSQL:    "SELECT id, user_id, title, body, version FROM posts ORDER BY id ASC LIMIT 3",
			notContain: []string{"WHERE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := getPostsQueryBuilder(tt.params).ToSql()
			require.NoError(t, err)
			require.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs != nil {
				require.Equal(t, tt.wantArgs, args)
			} else {
				require.Empty(t, args)
			}
			for _, s := range tt.notContain {
				require.NotContains(t, sql, s)
			}
		})
	}
}

func TestPostStorage_CreatePost(t *testing.T) {
	tests := []struct {
		name  string
		input model.Post
		setup func(m *mocks.MockDB)
		check func(t *testing.T, got model.Post, err error)
	}{
		{
			name:  "store assigned id",
			input: model.Post{UserID: 4, Title: "hw", Body: "wh"},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(
						gomock.Any(),         // ctx
						gomock.Any(),         // SQL from squirrel
						int64(4), "hw", "wh", // args
					).
					Return(postRow(model.Post{ID: 1, UserID: 4, Title: "hw", Body: "wh"}))
			},
			check: func(t *testing.T, got model.Post, err error) {
				require.NoError(t, err)
				require.Equal(t, model.Post{ID: 1, UserID: 4, Title: "hw", Body: "wh"}, got)
			},
		},
		{
			name:  "client supplied id goes first",
			input: model.Post{ID: 101, UserID: 1, Title: "101 Title", Body: "101 Body"},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(101), int64(1), "101 Title", "101 Body").
					Return(postRow(model.Post{ID: 101, UserID: 1, Title: "101 Title", Body: "101 Body"}))
			},
			check: func(t *testing.T, got model.Post, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(101), got.ID)
				require.Zero(t, got.Version)
			},
		},
		{
			name:  "duplicate id",
			input: model.Post{ID: 1, UserID: 1, Title: "t", Body: "b"},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(1), int64(1), "t", "b").
					Return(errRow(&pgconn.PgError{Code: "23505"}))
			},
			check: func(t *testing.T, _ model.Post, err error) {
				require.ErrorIs(t, err, service.ErrConflict)
			},
		},
		{
			name:  "db error (scan fails)",
			input: model.Post{UserID: 1, Title: "bad", Body: "post"},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(1), "bad", "post").
					Return(errRow(errors.New("db down")))
			},
			check: func(t *testing.T, _ model.Post, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "exec error creating post")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDB := mocks.NewMockDB(ctrl)
			tt.setup(mockDB)

			st := NewPostStorage(mockDB, trmpgx.DefaultCtxGetter)
			got, err := st.CreatePost(context.Background(), tt.input)
			tt.check(t, got, err)
		})
	}
}

func TestPostStorage_GetPostByID(t *testing.T) {
	tests := []struct {
		name   string
		postID int64
		row    fakeRow
		check  func(t *testing.T, got model.Post, err error)
	}{
		{
			name:   "success",
			postID: 1,
			row:    postRow(model.Post{ID: 1, UserID: 1, Title: "t", Body: "b", Version: 2}),
			check: func(t *testing.T, got model.Post, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(2), got.Version)
			},
		},
		{
			name:   "not found",
			postID: 999,
			row:    errRow(pgx.ErrNoRows),
			check: func(t *testing.T, _ model.Post, err error) {
				require.ErrorIs(t, err, service.ErrNotFound)
			},
		},
		{
			name:   "db error",
			postID: 500,
			row:    errRow(errors.New("db down")),
			check: func(t *testing.T, _ model.Post, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "exec select post by id")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDB(ctrl)
			m.EXPECT().
				QueryRow(gomock.Any(), gomock.Any(), tt.postID).
				Return(tt.row)

			st := NewPostStorage(m, trmpgx.DefaultCtxGetter)
			got, err := st.GetPostByID(context.Background(), tt.postID)
			tt.check(t, got, err)
		})
	}
}

func TestPostStorage_GetPosts(t *testing.T) {
	type setupFn func(m *mocks.MockDB)
	type checkFn func(t *testing.T, got []model.Post, err error)

	tests := []struct {
		name   string
		params storage.GetPostsParams
		setup  setupFn
		check  checkFn
	}{
		{
			name:   "all rows",
			params: storage.GetPostsParams{},
			setup: func(m *mocks.MockDB) {
				rows := pgxmock.NewRows(postColumns).
					AddRow(int64(1), int64(1), "t1", "b1", int64(0)).
					AddRow(int64(2), int64(1), "t2", "b2", int64(3)).
					Kind()

				// no placeholders: Query(ctx, sql)
				m.EXPECT().
					Query(gomock.Any(), gomock.Any()).
					Return(rows, nil)
			},
			check: func(t *testing.T, got []model.Post, err error) {
				require.NoError(t, err)
				require.Len(t, got, 2)
				require.Equal(t, int64(1), got[0].ID)
				require.Equal(t, int64(3), got[1].Version)
			},
		},
		{
			name:   "after cursor",
			params: storage.GetPostsParams{AfterID: 10, Limit: 2},
			setup: func(m *mocks.MockDB) {
				rows := pgxmock.NewRows(postColumns).
					AddRow(int64(11), int64(2), "t11", "b11", int64(0)).
					Kind()

				m.EXPECT().
					Query(gomock.Any(), gomock.Any(), int64(10)).
					Return(rows, nil)
			},
			check: func(t *testing.T, got []model.Post, err error) {
				require.NoError(t, err)
				require.Len(t, got, 1)
				require.Equal(t, int64(11), got[0].ID)
			},
		},
		{
			name:   "query error",
			params: storage.GetPostsParams{},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					Query(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("boom"))
			},
			check: func(t *testing.T, got []model.Post, err error) {
				require.Error(t, err)
				require.Nil(t, got)
				require.Contains(t, err.Error(), "exec error selecting posts")
			},
		},
		{
			name:   "scan error on second row",
			params: storage.GetPostsParams{},
			setup: func(m *mocks.MockDB) {
				rows := pgxmock.NewRows(postColumns).
					AddRow(int64(1), int64(1), "t1", "b1", int64(0)).
					// version of the wrong type makes Scan fail
					AddRow(int64(2), int64(1), "t2", "b2", "bad_version").
					Kind()

				m.EXPECT().
					Query(gomock.Any(), gomock.Any()).
					Return(rows, nil)
			},
			check: func(t *testing.T, got []model.Post, err error) {
				require.Error(t, err)
				require.Nil(t, got)
				require.Contains(t, err.Error(), "scan error")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockDB := mocks.NewMockDB(ctrl)
			tt.setup(mockDB)

			st := NewPostStorage(mockDB, trmpgx.DefaultCtxGetter)

			got, err := st.GetPosts(context.Background(), tt.params)
			tt.check(t, got, err)
		})
	}
}

func TestPostStorage_UpdatePost(t *testing.T) {
	in := model.Post{ID: 99, UserID: 10, Title: "NEW POST TITLE #1", Body: "NEW POST BODY #1"}

	tests := []struct {
		name   string
		params storage.UpdatePostParams
		setup  func(m *mocks.MockDB)
		check  func(t *testing.T, got model.Post, err error)
	}{
		{
			name:   "success with version check",
			params: storage.UpdatePostParams{Post: in, ExpectedVersion: int64Ptr(0)},
			setup: func(m *mocks.MockDB) {
				// order of args: user_id, title, body, id, version
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(10), in.Title, in.Body, int64(99), int64(0)).
					Return(postRow(model.Post{ID: 99, UserID: 10, Title: in.Title, Body: in.Body, Version: 1}))
			},
			check: func(t *testing.T, got model.Post, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(1), got.Version)
				require.Equal(t, in.Title, got.Title)
			},
		},
		{
			name:   "unchecked update of missing row",
			params: storage.UpdatePostParams{Post: in},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(10), in.Title, in.Body, int64(99)).
					Return(errRow(pgx.ErrNoRows))
			},
			check: func(t *testing.T, _ model.Post, err error) {
				require.ErrorIs(t, err, service.ErrNotFound)
			},
		},
		{
			name:   "stale version",
			params: storage.UpdatePostParams{Post: in, ExpectedVersion: int64Ptr(0)},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(10), in.Title, in.Body, int64(99), int64(0)).
					Return(errRow(pgx.ErrNoRows))
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(99)).
					Return(fakeRow{scan: func(dest ...any) error {
						*(dest[0].(*int64)) = 2
						return nil
					}})
			},
			check: func(t *testing.T, _ model.Post, err error) {
				require.ErrorIs(t, err, service.ErrConflict)
			},
		},
		{
			name:   "checked update of missing row",
			params: storage.UpdatePostParams{Post: in, ExpectedVersion: int64Ptr(0)},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(10), in.Title, in.Body, int64(99), int64(0)).
					Return(errRow(pgx.ErrNoRows))
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(99)).
					Return(errRow(pgx.ErrNoRows))
			},
			check: func(t *testing.T, _ model.Post, err error) {
				require.ErrorIs(t, err, service.ErrNotFound)
			},
		},
		{
			name:   "db error",
			params: storage.UpdatePostParams{Post: in},
			setup: func(m *mocks.MockDB) {
				m.EXPECT().
					QueryRow(gomock.Any(), gomock.Any(), int64(10), in.Title, in.Body, int64(99)).
					Return(errRow(errors.New("update failed")))
			},
			check: func(t *testing.T, _ model.Post, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "exec update post")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDB(ctrl)
			tt.setup(m)

			st := NewPostStorage(m, trmpgx.DefaultCtxGetter)
			got, err := st.UpdatePost(context.Background(), tt.params)
			tt.check(t, got, err)
		})
	}
}

func TestPostStorage_DeletePost(t *testing.T) {
	tests := []struct {
		name        string
		tag         pgconn.CommandTag
		execErr     error
		wantDeleted bool
		wantErr     bool
	}{
		{name: "existing row", tag: pgconn.NewCommandTag("DELETE 1"), wantDeleted: true},
		{name: "missing row", tag: pgconn.NewCommandTag("DELETE 0"), wantDeleted: false},
		{name: "db error", execErr: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			m := mocks.NewMockDB(ctrl)
			m.EXPECT().
				Exec(gomock.Any(), gomock.Any(), int64(88)).
				Return(tt.tag, tt.execErr)

			st := NewPostStorage(m, trmpgx.DefaultCtxGetter)
			deleted, err := st.DeletePost(context.Background(), 88)
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "exec delete post")
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantDeleted, deleted)
		})
	}
}

func TestPostStorage_CountPosts(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDB(ctrl)
	m.EXPECT().
		QueryRow(gomock.Any(), "SELECT COUNT(*) FROM posts").
		Return(fakeRow{scan: func(dest ...any) error {
			*(dest[0].(*int64)) = 100
			return nil
		}})

	st := NewPostStorage(m, trmpgx.DefaultCtxGetter)
	n, err := st.CountPosts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(100), n)
}

func TestPostStorage_Migrate(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := mocks.NewMockDB(ctrl)
	m.EXPECT().
		Exec(gomock.Any(), schema).
		Return(pgconn.NewCommandTag("CREATE TABLE"), nil)

	st := NewPostStorage(m, trmpgx.DefaultCtxGetter)
	require.NoError(t, st.Migrate(context.Background()))
}
